package models

type Ins interface {
	Addr() uint64
	Bytes() []byte
	Mnemonic() string
	OpStr() string
}

// Dis decodes as many whole instructions as fit in mem.
type Dis interface {
	Dis(mem []byte, addr uint64) ([]Ins, error)
}
