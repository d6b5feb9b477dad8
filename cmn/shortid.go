// Package cmn provides common low-level types and utilities for all cloudemu packages
/*
 * Copyright (c) 2024-2026, CloudEmu Authors. All rights reserved.
 */
package cmn

import (
	"math/rand"

	"github.com/teris-io/shortid"
)

const (
	// Alphabet for generating short IDs, similar to shortid.DEFAULT_ABC
	idABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"
)

var sid *shortid.Shortid

// InitShortID must be called once at process start (and in tests) before
// any GenID call.
func InitShortID(seed uint64) {
	sid = shortid.MustNew(4 /*worker*/, idABC, seed)
}

// GenID generates unique, URL-safe, human-readable short IDs. Used for
// version IDs, upload IDs and receipt-handle tails.
func GenID() (id string) {
	var h, t string
	id = sid.MustGenerate()
	if !isAlpha(id[0]) {
		h = string(rune('A' + rand.Int()%26))
	}
	c := id[len(id)-1]
	if c == '-' || c == '_' {
		t = string(rune('a' + rand.Int()%26))
	}
	return h + id + t
}

func IsValidID(id string) bool {
	const idlen = 9 // as per https://github.com/teris-io/shortid#id-length
	return len(id) >= idlen && isAlpha(id[0])
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
