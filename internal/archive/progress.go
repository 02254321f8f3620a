package archive

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressReader advances a byte progress bar as the transfer is read. With no
// writer it is a plain pass-through. size may be -1 when the remote does not
// report it.
type progressReader struct {
	r   io.Reader
	bar *progressbar.ProgressBar
}

func newProgressReader(r io.Reader, size int64, label string, w io.Writer) *progressReader {
	pr := &progressReader{r: r}
	if w == nil {
		return pr
	}
	pr.bar = progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return pr
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if p.bar != nil && n > 0 {
		_ = p.bar.Add(n)
	}
	return n, err
}

func (p *progressReader) finish(err error) {
	if p.bar == nil {
		return
	}
	if err != nil {
		_ = p.bar.Exit()
		return
	}
	_ = p.bar.Finish()
}
