// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RelayCore Contributors

package throttle

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Category names the kind of limit an exception applies to. Only
// connect flooding lives here today; the category survives so exception
// configuration stays compatible with the other limit kinds.
type Category string

// CategoryConnect covers connection-attempt throttling.
const CategoryConnect Category = "connect"

// ExceptionList is consulted before a tracked address is denied.
// Excepted addresses are admitted, though their attempts keep being
// counted underneath.
type ExceptionList interface {
	IsExcepted(category Category, addr string) bool
}

// MaskList is an ExceptionList backed by glob masks per category, in
// the usual "10.0.*" / "2001:db8:*" address-mask style.
type MaskList struct {
	patterns map[Category][]glob.Glob
}

// NewMaskList compiles the given masks. An invalid mask fails the whole
// list; exception configuration is not something to half-apply.
func NewMaskList(masks map[Category][]string) (*MaskList, error) {
	compiled := make(map[Category][]glob.Glob, len(masks))
	for cat, ms := range masks {
		for _, m := range ms {
			g, err := glob.Compile(m)
			if err != nil {
				return nil, oops.Code("BAD_EXCEPTION_MASK").
					With("category", string(cat)).
					With("mask", m).
					Wrap(err)
			}
			compiled[cat] = append(compiled[cat], g)
		}
	}
	return &MaskList{patterns: compiled}, nil
}

// IsExcepted reports whether addr matches any mask in category.
func (m *MaskList) IsExcepted(category Category, addr string) bool {
	for _, g := range m.patterns[category] {
		if g.Match(addr) {
			return true
		}
	}
	return false
}
