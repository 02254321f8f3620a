// Package repackage validates downloaded GenBank archives and rewrites the
// usable ones as decompressed .gbk files.
//
// An archive is usable when it holds at least one record and none of its
// records is a placeholder. Valid archives are rewritten in one streaming pass
// and removed; invalid ones are removed without output. Archives that cannot
// be decompressed or parsed are left in place for inspection.
package repackage
