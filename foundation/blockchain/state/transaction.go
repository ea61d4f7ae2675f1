package state

import (
	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
)

// SubmitWalletTransaction accepts a transaction from a wallet for inclusion.
// The transaction is checked against the current UTXO set with the same
// rules a block applies to it.
func (s *State) SubmitWalletTransaction(tx database.Tx) error {
	s.evHandler("state: SubmitWalletTransaction: started: tx[%s]", tx.ID())
	defer s.evHandler("state: SubmitWalletTransaction: completed: tx[%s]", tx.ID())

	if err := s.validateTransaction(tx); err != nil {
		metricTxRejected.WithLabelValues(reason(err)).Inc()
		return err
	}

	n := s.mempool.Upsert(tx)

	metricTxAccepted.Inc()
	metricMempool.Set(float64(n))

	s.signalStartMining()

	return nil
}

// =============================================================================

// validateTransaction checks the transaction against a throwaway view so the
// spends it records are discarded.
func (s *State) validateTransaction(tx database.Tx) error {
	return s.db.ValidateTransaction(tx, database.NewUTXOView())
}
