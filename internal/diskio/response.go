package diskio

// Response is a tagged variant returned to the control plane. Concrete types
// are ReadResponse, ValidationCompleteResponse, PieceValidatedResponse,
// ValidationUpdateResponse, MovedResponse, FreeSpaceResponse, and
// ErrorResponse.
type Response interface {
	isResponse()
}

// ReadResponse carries the bytes read for a Read request, together with the
// request's original context. Data is shared by reference: it may be handed
// to multiple peers requesting overlapping blocks, so the executor must not
// reuse it as scratch space once emitted.
type ReadResponse struct {
	Ctx  Ctx
	Data []byte
}

// ValidationCompleteResponse is the terminal outcome of a Validate request.
type ValidationCompleteResponse struct {
	TID     uint64
	Invalid []uint32
}

// PieceValidatedResponse is the outcome of a ValidatePiece request.
type PieceValidatedResponse struct {
	TID   uint64
	Piece uint32
	Valid bool
}

// ValidationUpdateResponse reports incremental Validate progress.
type ValidationUpdateResponse struct {
	TID     uint64
	Percent float32
}

// MovedResponse is emitted when a Move request succeeds.
type MovedResponse struct {
	TID  uint64
	Path string
}

// FreeSpaceResponse carries the result of a FreeSpace request.
type FreeSpaceResponse struct {
	Bytes uint64
}

// ErrorResponse tags a failed request with its kind and, when the request
// carried one, its tid.
type ErrorResponse struct {
	TID   uint64
	HasID bool
	Kind  ErrKind
	Err   error
}

func (ReadResponse) isResponse()               {}
func (ValidationCompleteResponse) isResponse() {}
func (PieceValidatedResponse) isResponse()     {}
func (ValidationUpdateResponse) isResponse()   {}
func (MovedResponse) isResponse()              {}
func (FreeSpaceResponse) isResponse()          {}
func (ErrorResponse) isResponse()              {}
