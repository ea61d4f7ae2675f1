package database

// UTXOView is a block scoped overlay on top of the persistent UTXO set. It
// tracks the outputs created and the outpoints spent by the transactions
// accepted so far, in the order they were accepted. Nothing in the view
// touches storage until the view is committed with the block.
type UTXOView struct {
	created      map[OutPoint]UTXO
	createdOrder []OutPoint
	spent        map[OutPoint]struct{}
	spentOrder   []OutPoint
}

// NewUTXOView constructs an empty view.
func NewUTXOView() *UTXOView {
	return &UTXOView{
		created: make(map[OutPoint]UTXO),
		spent:   make(map[OutPoint]struct{}),
	}
}

// AddTx records every output of the transaction as created.
func (v *UTXOView) AddTx(tx Tx) {
	txID := tx.ID()
	for i, out := range tx.Outputs {
		u := NewUTXO(txID, uint32(i), out)
		op := u.OutPoint()

		if _, exists := v.created[op]; !exists {
			v.createdOrder = append(v.createdOrder, op)
		}
		v.created[op] = u
	}
}

// Created returns an output created earlier in the block.
func (v *UTXOView) Created(op OutPoint) (UTXO, bool) {
	u, exists := v.created[op]
	return u, exists
}

// IsSpent reports whether the outpoint was spent earlier in the block.
func (v *UTXOView) IsSpent(op OutPoint) bool {
	_, exists := v.spent[op]
	return exists
}

// spend records the outpoints as spent.
func (v *UTXOView) spend(ops []OutPoint) {
	for _, op := range ops {
		if _, exists := v.spent[op]; exists {
			continue
		}
		v.spent[op] = struct{}{}
		v.spentOrder = append(v.spentOrder, op)
	}
}

// Additions returns the outputs that must be inserted into the UTXO set when
// the view is committed. Outputs created and spent inside the same block
// never reach storage.
func (v *UTXOView) Additions() []UTXO {
	utxos := make([]UTXO, 0, len(v.createdOrder))
	for _, op := range v.createdOrder {
		if v.IsSpent(op) {
			continue
		}
		utxos = append(utxos, v.created[op])
	}

	return utxos
}

// Removals returns the outpoints that must be removed from the UTXO set
// when the view is committed.
func (v *UTXOView) Removals() []OutPoint {
	ops := make([]OutPoint, 0, len(v.spentOrder))
	for _, op := range v.spentOrder {
		if _, exists := v.created[op]; exists {
			continue
		}
		ops = append(ops, op)
	}

	return ops
}
