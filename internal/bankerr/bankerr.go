// Package bankerr collects the bank's sentinel error taxonomy. Each bucket
// mirrors a concern boundary (auth, db, comms, ...); callers compare with
// errors.Is rather than switching on string codes.
package bankerr

import "errors"

// Auth errors originate at the (out-of-scope) front-end boundary but are
// enumerated here so downstream components can recognize them uniformly.
var (
	ErrUserExists               = errors.New("bankerr: user already exists")
	ErrIncorrectPassword        = errors.New("bankerr: incorrect password")
	ErrRegistrationLimitExceeded = errors.New("bankerr: registration limit exceeded")
	ErrRegistrationsDisabled    = errors.New("bankerr: registrations disabled")
	ErrJwtNotSupplied           = errors.New("bankerr: jwt not supplied")
	ErrJwtInvalid               = errors.New("bankerr: jwt invalid")
	ErrJwtExpired               = errors.New("bankerr: jwt expired")
)

// Db errors surface from internal/database.
var (
	ErrDbConnection     = errors.New("bankerr: database connection error")
	ErrUserAlreadyExists = errors.New("bankerr: user already exists in database")
	ErrUserDoesNotExist = errors.New("bankerr: user does not exist")
	ErrCouldNotFetchData = errors.New("bankerr: could not fetch data")
	ErrUpdateFailed     = errors.New("bankerr: update failed")
	ErrDbUnknown        = errors.New("bankerr: unknown database error")
)

// Comms errors surface from internal/bus and internal/fabric.
var (
	ErrFailedToSendMessage  = errors.New("bankerr: failed to send message")
	ErrServerResponseTimeout = errors.New("bankerr: server response timeout")
)

// Request errors are raised by validation performed before a request leaves
// the front-end boundary (see each Message's Validate method).
var (
	ErrInvalidDataSupplied = errors.New("bankerr: invalid data supplied")
)

// External errors come from collaborators outside the bank's control
// (price references, the hedging venue's REST surface, etc).
var (
	ErrFailedToFetchExternalData = errors.New("bankerr: failed to fetch external data")
)

// Bank errors are raised by internal/bank's message handlers.
var (
	ErrUserAccountNotFound = errors.New("bankerr: user account not found")
	ErrFailedTransaction   = errors.New("bankerr: failed transaction")
	ErrUserSuspended       = errors.New("bankerr: user suspended")
	ErrSwapError           = errors.New("bankerr: swap error")
)

// Payment errors are raised while handling ApiPaymentRequest.
var (
	ErrInsufficientFunds   = errors.New("bankerr: insufficient funds")
	ErrInvoiceAlreadyPaid  = errors.New("bankerr: invoice already paid")
	ErrSelfPayment         = errors.New("bankerr: self payment rejected")
	ErrRateNotAvailable    = errors.New("bankerr: rate not available")
	ErrInvalidInvoice      = errors.New("bankerr: invalid invoice")
	ErrZeroAmountInvoice   = errors.New("bankerr: zero amount invoice")
	ErrCreatingInvoiceFailed = errors.New("bankerr: creating invoice failed")
)

// Swap/Quote errors are raised by internal/dealer.
var (
	ErrCurrencyNotAvailable     = errors.New("bankerr: currency not available")
	ErrInvalidQuoteId           = errors.New("bankerr: invalid quote id")
	ErrNotEnoughAvailableBalance = errors.New("bankerr: not enough available balance")
)

// LndConnector errors are raised by internal/lndadapter.
var (
	ErrFailedToCreateInvoice = errors.New("bankerr: failed to create invoice")
	ErrFailedToSendPayment   = errors.New("bankerr: failed to send payment")
	ErrFailedToGetNodeInfo   = errors.New("bankerr: failed to get node info")
	ErrFailedToQueryRoutes   = errors.New("bankerr: failed to query routes")
)

// VenueClient errors are raised by internal/venue.
var (
	ErrRequestSerializationFailed = errors.New("bankerr: request serialization failed")
	ErrWebsocketSendFailed        = errors.New("bankerr: websocket send failed")
	ErrActionTimeout              = errors.New("bankerr: action timeout")
	ErrAuthenticationFailed       = errors.New("bankerr: venue authentication failed")
	ErrBalanceNotAvailable        = errors.New("bankerr: balance not available")
	ErrNonFiatCurrency            = errors.New("bankerr: non-fiat currency")
	ErrCouldNotConnect            = errors.New("bankerr: could not connect to venue")
)
