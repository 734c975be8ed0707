package catalog

import "errors"

var (
	ErrNamespaceAlreadyExists = errors.New("catalog: namespace already exists")
	ErrNamespaceNotFound      = errors.New("catalog: namespace not found")
	ErrNamespaceNotEmpty      = errors.New("catalog: namespace not empty")
	ErrTableAlreadyExists     = errors.New("catalog: table already exists")
	ErrTableNotFound          = errors.New("catalog: table not found")
	ErrCommitConflict         = errors.New("catalog: commit conflict")
	ErrInvalidVersionHint     = errors.New("catalog: invalid version hint")
)
