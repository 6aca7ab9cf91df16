package domain

import "github.com/m-mizutani/goerr/v2"

// Failure classes. Only ErrConfig and ErrExtract may terminate the process;
// everything else is recovered at the component that owns the external call.
var (
	ErrConfig    = goerr.New("invalid configuration")
	ErrExtract   = goerr.New("document extraction failed")
	ErrEmbedding = goerr.New("embedding failed")
	ErrBackend   = goerr.New("inference backend failed")
	ErrLogWrite  = goerr.New("query log write failed")
)
