//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package client

import (
	"strings"

	"github.com/google/uuid"
)

// Mode selects how the client identifies itself to the chatbot service.
type Mode string

const (
	// ModeGuestNew starts every session as a brand-new guest with a fresh
	// fingerprint.
	ModeGuestNew Mode = "guest_new"
	// ModeGuestExisting reuses a known guest fingerprint across sessions.
	ModeGuestExisting Mode = "guest_existing"
	// ModeUser authenticates with a JWT as a registered user.
	ModeUser Mode = "user"
)

// Identity is the caller identity presented to the service. The server
// distinguishes guests by the X-Fingerprint header and users by the
// ACCESS_TOKEN cookie.
type Identity struct {
	Mode        Mode
	Fingerprint string
	GuestID     string
	JWTToken    string
	UserID      string
}

// GuestNew returns an identity that registers as a new guest.
func GuestNew() Identity {
	return Identity{Mode: ModeGuestNew, Fingerprint: newFingerprint()}
}

// GuestExisting returns an identity reusing the given guest fingerprint.
// A fresh fingerprint is generated when empty.
func GuestExisting(fingerprint, guestID string) Identity {
	if fingerprint == "" {
		fingerprint = newFingerprint()
	}
	return Identity{Mode: ModeGuestExisting, Fingerprint: fingerprint, GuestID: guestID}
}

// User returns an identity authenticating with the given JWT.
func User(jwtToken, userID string) Identity {
	return Identity{
		Mode:        ModeUser,
		Fingerprint: newFingerprint(),
		JWTToken:    jwtToken,
		UserID:      userID,
	}
}

func newFingerprint() string {
	return "test_fp_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
