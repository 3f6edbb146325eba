package core

import (
	"strings"
	"time"
)

var NowFunc = time.Now // mockable

// Now returns the current UTC time, truncated to the millisecond precision used by the database.
func Now() time.Time {
	return NowFunc().UTC().Truncate(time.Millisecond)
}

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanStrings applies CleanString to every item of `ss`, dropping the empty ones.
func CleanStrings(ss []string, lower ...bool) []string {
	if ss == nil {
		return nil
	}
	cleaned := make([]string, 0, len(ss))
	for _, s := range ss {
		if s = CleanString(s, lower...); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return cleaned
}

// Page describes a page of a listing. Numbers start at 1.
type Page struct {
	Number int `query:"page"`
	Size   int `query:"page_size"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Clean applies the defaults and bounds.
func (p *Page) Clean() {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	} else if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
}

func (p Page) Limit() int { return p.Size }

func (p Page) Offset() int { return (p.Number - 1) * p.Size }
