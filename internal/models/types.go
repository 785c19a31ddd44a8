// Package models defines the relational entities of §3: accounts, atoms,
// triples, vaults, positions, deposits/redemptions, fee transfers, signals
// and stats. Each type is a plain struct; persistence is the concern of
// internal/store, not of this package.
package models

import (
	"strconv"
	"time"
)

// AccountType classifies an Account row (§3).
type AccountType string

const (
	AccountDefault       AccountType = "default"
	AccountAtomWallet    AccountType = "atom_wallet"
	AccountProtocolVault AccountType = "protocol_vault"
)

// Account is created on first observation of any address (§3).
type Account struct {
	ID    string // 0x-prefixed address, EIP-55 checksummed when taken from a decoded event
	Label string
	Type  AccountType
	Image string
}

// ResolutionStatus tracks an Atom's off-chain resolution lifecycle (§3, §4.4).
type ResolutionStatus string

const (
	ResolutionPending  ResolutionStatus = "pending"
	ResolutionResolved ResolutionStatus = "resolved"
	ResolutionFailed   ResolutionStatus = "failed"
)

// AtomType is the classification assigned in AtomCreated handling (§4.3 step 1).
type AtomType string

const (
	AtomTypeAccount      AtomType = "account"
	AtomTypeBook         AtomType = "book"
	AtomTypeThing        AtomType = "thing"
	AtomTypePerson       AtomType = "person"
	AtomTypeOrganization AtomType = "organization"
	AtomTypeTextObject   AtomType = "text_object"
	AtomTypeByteObject   AtomType = "byte_object"
	AtomTypeJSONObject   AtomType = "json_object"
	AtomTypeIPFS         AtomType = "ipfs"
	AtomTypeENS          AtomType = "ens"
	AtomTypeCaip10       AtomType = "caip10"
)

// Atom is a uniquely identified semantic term (§3, §GLOSSARY).
type Atom struct {
	TermID           TermID
	CreatorID        string
	VaultID          string
	WalletID         string
	Label            string
	Data             []byte
	Type             AtomType
	Emoji            string
	Image            string
	ResolutionStatus ResolutionStatus
	FailureReason    string
	CreatedAtBlock   int64
	CreatedAtTx      string
}

// Triple is a directed relation between three atoms (§3, §GLOSSARY).
type Triple struct {
	TermID         TermID
	SubjectID      TermID
	PredicateID    TermID
	ObjectID       TermID
	CounterTermID  TermID
	CreatorID      string
}

// DefaultCurveID is the curve id of every term's default vault (§3).
const DefaultCurveID = 1

// Vault is the accounting unit holding fractional shares of belief in a
// term (§3, §GLOSSARY). Invariant: TotalShares == sum of its positions'
// shares (§8).
type Vault struct {
	ID                string // "{term_id}-{curve_id}"
	TermID            TermID
	CurveID           int64
	TotalShares       *DecimalShares
	CurrentSharePrice *DecimalShares
	PositionCount     int64
}

// VaultID formats the composite vault identifier used throughout §3/§4.
func VaultID(term TermID, curveID int64) string {
	return term.String() + "-" + strconv.FormatInt(curveID, 10)
}

// Position is an account's share balance in a vault (§3, §GLOSSARY).
// Invariant: Shares >= 0; a zero-share position SHOULD be deleted (§8).
type Position struct {
	ID        string // "{vault_id}-{account_id}"
	VaultID   string
	AccountID string
	Shares    *DecimalShares
}

// PositionID formats the composite position identifier (§3).
func PositionID(vaultID, accountID string) string {
	return vaultID + "-" + accountID
}

// Deposit is an immutable ledger row keyed by EventID (§3).
type Deposit struct {
	EventID           string
	VaultID           string
	Sender            string
	Receiver          string
	AssetsAfterFees   *DecimalShares
	SharesForReceiver *DecimalShares
	EntryFee          *DecimalShares
	ProtocolFee       *DecimalShares
	BlockNumber       int64
	BlockTimestamp    int64
}

// Redemption is the redeem-side mirror of Deposit (§3, §4.3).
type Redemption struct {
	EventID         string
	VaultID         string
	Sender          string
	Receiver        string
	AssetsForReceiver *DecimalShares
	SharesRedeemed  *DecimalShares
	ExitFee         *DecimalShares
	ProtocolFee     *DecimalShares
	BlockNumber     int64
	BlockTimestamp  int64
}

// FeeTransfer records a protocol fee movement (§3, §4.3 FeesTransferred).
type FeeTransfer struct {
	EventID  string
	Sender   string
	Receiver string
	Amount   *DecimalShares
}

// SignalDirection is the sign of a derived Signal (§3, §GLOSSARY).
type SignalDirection string

const (
	SignalDeposit  SignalDirection = "deposit"
	SignalRedeem   SignalDirection = "redeem"
)

// Signal is a derived per-account, per-term delta (§3, §GLOSSARY).
type Signal struct {
	ID        string // uuid; no natural key exists per the spec
	AccountID string
	TermID    TermID
	VaultID   string
	Direction SignalDirection
	Delta     *SignedDecimal // positive for deposit, negative for redeem
	EventID   string
	CreatedAt time.Time
}

// Stats holds the running totals described in §3.
type Stats struct {
	TotalAtoms    int64
	TotalTriples  int64
	TotalSignals  int64
	TotalAccounts int64
}

// StatsHour is the hourly-bucketed counterpart of Stats (§3).
type StatsHour struct {
	HourStart     time.Time
	TotalAtoms    int64
	TotalTriples  int64
	TotalSignals  int64
	TotalAccounts int64
	DepositVolume *DecimalShares
	RedeemVolume  *DecimalShares
}

// TextObject is the side table for AtomTypeTextObject (§3, §4.4).
type TextObject struct {
	ID   TermID
	Data string
}

// ByteObject is the side table for AtomTypeByteObject (§3, §4.4).
type ByteObject struct {
	ID   TermID
	Data []byte
}

// JSONObject is the side table for AtomTypeJSONObject (§3, §4.4).
type JSONObject struct {
	ID   TermID
	Data []byte // raw JSON
}

// Person is the side table for AtomTypePerson (§3, §4.4).
type Person struct {
	ID     TermID
	Name   string
	Email  string
	Image  string
}

// Organization is the side table for AtomTypeOrganization (§3, §4.4).
type Organization struct {
	ID    TermID
	Name  string
	Email string
	Image string
}

// Book is the side table for AtomTypeBook (§3, §4.4).
type Book struct {
	ID     TermID
	Name   string
	Author string
	Genre  string
	Image  string
}

// Thing is the side table for AtomTypeThing (§3, §4.4).
type Thing struct {
	ID    TermID
	Name  string
	Image string
	URL   string
}

// Caip10 is the side table for AtomTypeCaip10 (§3, §4.1 "decoded in place").
type Caip10 struct {
	ID      TermID
	ChainID string
	Address string
}

// ImageClassification is the external classifier's verdict (§4.5).
type ImageClassification string

const (
	ImageSafe    ImageClassification = "safe"
	ImageUnsafe  ImageClassification = "unsafe"
	ImageUnknown ImageClassification = "unknown"
)

// ImageGuard records one image classification result (§4.5 "records
// {ipfs_hash, score, model, classification}").
type ImageGuard struct {
	ID             string
	IPFSHash       string
	Score          *float64
	Model          string
	Classification ImageClassification
	CreatedAt      time.Time
}
