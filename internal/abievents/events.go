// Package abievents decodes EthMultiVault ABI-encoded log payloads into the
// protocol's tagged-union event space (§3 "DecodedMessage", §4.2 step 5,
// §9 "Tagged-union events"). Matching on the Kind() of a decoded event is
// exhaustive over the switch in internal/consumer/decoded.
package abievents

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
)

// Kind discriminates the EthMultiVaultEvents union (§3).
type Kind string

const (
	KindAtomCreated            Kind = "AtomCreated"
	KindTripleCreated          Kind = "TripleCreated"
	KindDeposited              Kind = "Deposited"
	KindDepositedCurve         Kind = "DepositedCurve"
	KindRedeemed               Kind = "Redeemed"
	KindRedeemedCurve          Kind = "RedeemedCurve"
	KindFeesTransferred        Kind = "FeesTransferred"
	KindSharePriceChanged      Kind = "SharePriceChanged"
	KindSharePriceChangedCurve Kind = "SharePriceChangedCurve"
)

// Event is implemented by every concrete decoded event struct below.
type Event interface {
	Kind() Kind
}

// AtomCreated mirrors §4.3 "AtomCreated(creator, atom_wallet, term_id, atom_data)".
type AtomCreated struct {
	Creator    common.Address
	AtomWallet common.Address
	TermID     models.TermID
	AtomData   []byte
}

func (AtomCreated) Kind() Kind { return KindAtomCreated }

// TripleCreated mirrors §4.3 "TripleCreated(creator, term_id, subject, predicate, object)".
type TripleCreated struct {
	Creator   common.Address
	TermID    models.TermID
	Subject   models.TermID
	Predicate models.TermID
	Object    models.TermID
}

func (TripleCreated) Kind() Kind { return KindTripleCreated }

// Deposited mirrors §4.3 "Deposited(sender, receiver, vault_id, assets_after_fees,
// shares_for_receiver, entry_fee, protocol_fee, …)". CurveID is always
// models.DefaultCurveID for this variant.
type Deposited struct {
	Sender            common.Address
	Receiver          common.Address
	TermID            models.TermID
	CurveID           int64
	AssetsAfterFees   *big.Int
	SharesForReceiver *big.Int
	EntryFee          *big.Int
	ProtocolFee       *big.Int
	NewSharePrice     *big.Int
}

func (Deposited) Kind() Kind { return KindDeposited }

// DepositedCurve is the curve-addressed counterpart of Deposited (§4.3).
type DepositedCurve struct {
	Sender            common.Address
	Receiver          common.Address
	TermID            models.TermID
	CurveID           int64
	AssetsAfterFees   *big.Int
	SharesForReceiver *big.Int
	EntryFee          *big.Int
	ProtocolFee       *big.Int
	NewSharePrice     *big.Int
}

func (DepositedCurve) Kind() Kind { return KindDepositedCurve }

// Redeemed mirrors Deposited for the redeem path (§4.3).
type Redeemed struct {
	Sender            common.Address
	Receiver          common.Address
	TermID            models.TermID
	CurveID           int64
	AssetsForReceiver *big.Int
	SharesRedeemed    *big.Int
	ExitFee           *big.Int
	ProtocolFee       *big.Int
	NewSharePrice     *big.Int
}

func (Redeemed) Kind() Kind { return KindRedeemed }

// RedeemedCurve is the curve-addressed counterpart of Redeemed (§4.3).
type RedeemedCurve struct {
	Sender            common.Address
	Receiver          common.Address
	TermID            models.TermID
	CurveID           int64
	AssetsForReceiver *big.Int
	SharesRedeemed    *big.Int
	ExitFee           *big.Int
	ProtocolFee       *big.Int
	NewSharePrice     *big.Int
}

func (RedeemedCurve) Kind() Kind { return KindRedeemedCurve }

// FeesTransferred mirrors §4.3 "FeesTransferred": no vault mutation.
type FeesTransferred struct {
	Sender   common.Address
	Receiver common.Address
	Amount   *big.Int
}

func (FeesTransferred) Kind() Kind { return KindFeesTransferred }

// SharePriceChanged mirrors §4.3
// "SharePriceChanged{vault_id, new_share_price, total_assets, total_shares}".
type SharePriceChanged struct {
	TermID        models.TermID
	CurveID       int64
	NewSharePrice *big.Int
	TotalAssets   *big.Int
	TotalShares   *big.Int
}

func (SharePriceChanged) Kind() Kind { return KindSharePriceChanged }

// SharePriceChangedCurve is the curve-addressed counterpart (§4.3).
type SharePriceChangedCurve struct {
	TermID        models.TermID
	CurveID       int64
	NewSharePrice *big.Int
	TotalAssets   *big.Int
	TotalShares   *big.Int
}

func (SharePriceChangedCurve) Kind() Kind { return KindSharePriceChangedCurve }
