package entities

import (
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/whiteelite/tokenforge/pkg/shared/domain/entities"
)

type (
	Decimals   uint8
	BaseUnits  uint64
	Amount     = decimal.Decimal
	Signature  string
	Lamports   uint64
	BasisPoint uint16
)

type Mint struct {
	entities.Entity

	Address         common.PublicKey
	Decimals        Decimals
	MintAuthority   *common.PublicKey
	FreezeAuthority *common.PublicKey
	Supply          BaseUnits
	IsInitialized   bool
}

type TokenAccount struct {
	entities.Entity

	Address  common.PublicKey
	Mint     common.PublicKey
	Owner    common.PublicKey
	Amount   BaseUnits
	IsFrozen bool
}

type (
	Name        string
	Symbol      string
	URI         string
	Description string
)

// Creator, Collection and Uses are carried so a record read back from the
// chain can be compared against the nil fields this system always writes.
type Creator struct {
	Address  common.PublicKey
	Verified bool
	Share    uint8
}

type Collection struct {
	Verified bool
	Key      common.PublicKey
}

type Uses struct {
	UseMethod uint8
	Remaining uint64
	Total     uint64
}

type MetadataRecord struct {
	entities.Entity

	Address              common.PublicKey
	Mint                 common.PublicKey
	UpdateAuthority      common.PublicKey
	Name                 Name
	Symbol               Symbol
	URI                  URI
	SellerFeeBasisPoints BasisPoint
	Creators             *[]Creator
	Collection           *Collection
	Uses                 *Uses
	IsMutable            bool
	PrimarySaleHappened  bool
}

// OffchainDocument is the JSON document the on-chain metadata URI points at.
type OffchainDocument struct {
	entities.Entity `json:"-"`

	Name        Name        `json:"name"`
	Description Description `json:"description"`
	Image       URI         `json:"image"`
}

type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// Rank orders commitment levels so a status can be compared to a target.
func (c Commitment) Rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	default:
		return 0
	}
}

// SignatureStatus is what the ledger knows about a submitted transaction.
// Found=false means the ledger has not seen the signature (yet). Cause is the
// ledger error Err classifies as, when the adapter recognises it.
type SignatureStatus struct {
	Found      bool
	Slot       uint64
	Commitment Commitment
	Err        string
	Cause      error
}

type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeFailed    Outcome = "failed"
	OutcomeUnknown   Outcome = "unknown"
)

type Receipt struct {
	entities.Entity

	Signature Signature
	Outcome   Outcome
	Slot      uint64
}

type Operation string

const (
	OperationCreateMint     Operation = "create_mint"
	OperationCreateAccount  Operation = "create_account"
	OperationMintTo         Operation = "mint_to"
	OperationTransfer       Operation = "transfer"
	OperationBurn           Operation = "burn"
	OperationCreateMetadata Operation = "create_metadata"
	OperationUpdateMetadata Operation = "update_metadata"
)

// LifecycleEvent is emitted once per submitted transaction.
type LifecycleEvent struct {
	entities.Entity `json:"-"`

	ID        uuid.UUID `json:"id"`
	Operation Operation `json:"operation"`
	Mint      string    `json:"mint,omitempty"`
	Signature Signature `json:"signature,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	BaseUnits BaseUnits `json:"base_units,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// JournalEntry is the durable record of one submission.
type JournalEntry struct {
	entities.Entity `json:"-"`

	ID        uuid.UUID `json:"id"`
	Operation Operation `json:"operation"`
	Mint      string    `json:"mint,omitempty"`
	Signature Signature `json:"signature"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}
