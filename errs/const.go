package errs

const (
	ErrCode_OK           = 0
	ErrCode_Unknown      = 1
	ErrCode_Parse        = 2
	ErrCode_InvalidDelay = 3
	ErrCode_InvalidTick  = 4
	ErrCode_Capacity     = 5
	ErrCode_IdScheduled  = 6
	ErrCode_Domain       = 7
	ErrCode_Config       = 8
	ErrCode_Protocol     = 9
)

var (
	Unknown      = CreateCodeError(ErrCode_Unknown, "unknown error")
	Parse        = CreateCodeError(ErrCode_Parse, "parse error")
	InvalidDelay = CreateCodeError(ErrCode_InvalidDelay, "invalid delay")
	InvalidTick  = CreateCodeError(ErrCode_InvalidTick, "invalid tick count")
	Capacity     = CreateCodeError(ErrCode_Capacity, "delay exceeds wheel capacity")
	IdScheduled  = CreateCodeError(ErrCode_IdScheduled, "id already scheduled")
	Domain       = CreateCodeError(ErrCode_Domain, "unknown domain")
	Config       = CreateCodeError(ErrCode_Config, "invalid config")
	Protocol     = CreateCodeError(ErrCode_Protocol, "protocol error")
)
