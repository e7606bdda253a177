package tcmalloc

import "errors"

import "github.com/bnclabs/tcmalloc/pagecache"

// ErrOutOfMemory is returned when the operating system refuses to hand
// over fresh pages and no free span can satisfy the request.
// It re-exports pagecache.ErrOutOfMemory so callers can use errors.Is
// against the root package without reaching into a tier package.
var ErrOutOfMemory = pagecache.ErrOutOfMemory

// ErrSettingMissing is returned by settingInt64, the accessor Initialize
// uses to read DefaultSettings(), when a required key is absent.
var ErrSettingMissing = errors.New("tcmalloc.settingmissing")

// ErrSettingType is returned by the same accessor when a required key
// is present but holds a value of a type that cannot be read as the
// expected kind.
var ErrSettingType = errors.New("tcmalloc.settingtype")
