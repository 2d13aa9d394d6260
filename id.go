package dues

import "github.com/xraph/dues/id"

// ID is the primary identifier type for all dues entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// ChargeID identifies a charge.
type ChargeID = id.ChargeID

// ParseChargeID parses a "chg_" identifier.
var ParseChargeID = id.ParseChargeID
