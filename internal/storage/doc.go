// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local key/value store that persists the
// login session between runs.
//
// Only two keys are used in practice: KeyToken holds the bearer token and
// KeyUsername holds the logged-in user's email. Both are removed on logout.
//
// # Usage
//
//	store, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	err = store.Set(ctx, storage.KeyToken, token)
//	token, ok, err := store.Get(ctx, storage.KeyToken)
//
// # Storage Location
//
// The store lives in ~/.assist/session.db (sqlite via gorm) with 0600
// permissions.
package storage
