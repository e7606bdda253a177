package tcmalloc

import "fmt"

import "github.com/cloudfoundry/gosigar"
import s "github.com/bnclabs/gosettings"

import "github.com/bnclabs/tcmalloc/sizeclass"

// maxPrereserve bounds how much address space DefaultSettings will ever
// suggest pre-reserving, regardless of how much free memory gosigar
// reports, so Initialize never blocks on an unreasonably large eager mmap.
const maxPrereserve = int64(64 * 1024 * 1024)

// DefaultSettings returns the allocator's tuning constants as a
// Settings value, the way malloc.Defaultsettings and bogn.Defaultsettings
// return theirs. It additionally consults gosigar for free system memory,
// the way bogn.Defaultsettings's getsysmem seeds llrb.keycapacity — here
// to size how many pages the page cache should be willing to pre-reserve
// and to warn when free memory looks too low to be worth it. This is
// informational sizing, not an enforced ceiling on how much memory the
// allocator may eventually hold.
func DefaultSettings() s.Settings {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		warnf("tcmalloc: gosigar Mem.Get failed: %v", err)
	}

	prereserve := int64(mem.Free) / 4
	minPrereserve := int64(sizeclass.SpanPages * sizeclass.PageSize)
	if mem.Free > 0 && prereserve < minPrereserve {
		warnf("tcmalloc: free system memory (%v bytes) is low", mem.Free)
		prereserve = minPrereserve
	}
	if prereserve > maxPrereserve {
		prereserve = maxPrereserve
	}

	return s.Settings{
		"alignment":      sizeclass.Alignment,
		"maxbytes":       sizeclass.MaxBytes,
		"pagesize":       sizeclass.PageSize,
		"spanpages":      sizeclass.SpanPages,
		"spillthreshold": int64(64),
		"prereserve":     prereserve,
	}
}

// settingInt64 reads key from setts as an int64, the way s.Settings.Int64
// does, but returns ErrSettingMissing/ErrSettingType instead of panicking
// — Initialize applies settings at program startup, where a panic would
// take the whole process down over a single bad key, so the accessor used
// there must report the problem through the normal error return instead.
func settingInt64(setts s.Settings, key string) (int64, error) {
	value, ok := setts[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrSettingMissing, key)
	}
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: %q holds %T", ErrSettingType, key, value)
	}
}
