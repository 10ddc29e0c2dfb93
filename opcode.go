package reactor

type OpCode int

const (
	OP_ACCEPT OpCode = 1
	OP_CLOSE  OpCode = 2
	OP_ERROR  OpCode = 3
)
