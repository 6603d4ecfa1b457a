package repository

import "errors"

var (
	// 対象が無い
	ErrNotFound = errors.New("not found")
	// 一意制約などの競合
	ErrConflict = errors.New("conflict")
)
