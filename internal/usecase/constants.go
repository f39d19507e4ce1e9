package usecase

import "time"

// DefaultTransactionTimeout bounds the lifetime of a posting or reversal
// transaction, including its row locks.
const DefaultTransactionTimeout = 10 * time.Second
