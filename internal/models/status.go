package models

// transitions lists the allowed ledger status edges. Nothing leaves
// pending automatically; an operator drives every edge.
var transitions = map[TransactionStatus][]TransactionStatus{
	TxPending:   {TxCompleted, TxFailed, TxCancelled},
	TxCompleted: {TxReversed},
}

// CanTransition reports whether a transaction may move from one status to another.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxPending, TxCompleted, TxFailed, TxCancelled, TxReversed:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxTransfer, TxPayment, TxRefund, TxFee:
		return true
	}
	return false
}

// ReferencePrefix is the three-letter prefix used for generated references.
func (t TransactionType) ReferencePrefix() string {
	switch t {
	case TxDeposit:
		return "DEP"
	case TxWithdrawal:
		return "WDR"
	case TxTransfer:
		return "TRF"
	case TxPayment:
		return "PAY"
	case TxRefund:
		return "RFD"
	case TxFee:
		return "FEE"
	default:
		return "TXN"
	}
}
