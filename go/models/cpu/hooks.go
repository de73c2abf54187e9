package cpu

import (
	"github.com/pkg/errors"
)

type Hook interface{}

// callback signatures, by hook type
type (
	CodeCb = func(Cpu, uint64, uint32)
	IntrCb = func(Cpu, uint32)
	MemCb  = func(Cpu, int, uint64, int, int64)
)

type hook struct {
	htype int
	start uint64
	end   uint64
	cb    interface{}
}

// start > end means the hook covers every address
func (h *hook) contains(addr uint64) bool {
	return h.start > h.end || addr >= h.start && addr <= h.end
}

// memory hooks only fire for the access kinds they asked for
func (h *hook) wants(access int) bool {
	switch access {
	case MEM_READ:
		return h.htype&HOOK_MEM_READ != 0
	case MEM_WRITE:
		return h.htype&HOOK_MEM_WRITE != 0
	case MEM_FETCH:
		return h.htype&HOOK_MEM_FETCH != 0
	}
	return false
}

// Hooks implements HookAdd/HookDel and the dispatch side used by interpreters.
type Hooks struct {
	cpu Cpu

	code []*hook
	intr []*hook
	mem  []*hook
}

// creates &Hooks{}, optionally attaching to a *Mem instance
func NewHooks(cpu Cpu, mem *Mem) *Hooks {
	h := &Hooks{cpu: cpu}
	if mem != nil {
		// mem will dispatch memory hooks automatically
		mem.hooks = h
	}
	return h
}

func (h *Hooks) list(htype int) *[]*hook {
	switch {
	case htype == HOOK_CODE:
		return &h.code
	case htype == HOOK_INTR:
		return &h.intr
	case htype != 0 && htype&^(HOOK_MEM_READ|HOOK_MEM_WRITE|HOOK_MEM_FETCH) == 0:
		return &h.mem
	}
	return nil
}

func (h *Hooks) HookAdd(htype int, cb interface{}, start uint64, end uint64, extra ...int) (Hook, error) {
	var ok bool
	switch htype {
	case HOOK_CODE:
		_, ok = cb.(CodeCb)
	case HOOK_INTR:
		_, ok = cb.(IntrCb)
	default:
		if h.list(htype) == nil {
			return nil, errors.Errorf("unknown hook type: %d", htype)
		}
		_, ok = cb.(MemCb)
	}
	if !ok {
		return nil, errors.Errorf("wrong callback type %T for hook type %d", cb, htype)
	}
	hh := &hook{htype: htype, start: start, end: end, cb: cb}
	list := h.list(htype)
	*list = append(*list, hh)
	return hh, nil
}

func (h *Hooks) HookDel(hh Hook) error {
	target, ok := hh.(*hook)
	if !ok {
		return errors.Errorf("not a hook: %T", hh)
	}
	list := h.list(target.htype)
	for i, v := range *list {
		if v == target {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return nil
		}
	}
	return errors.New("hook not found")
}

func (h *Hooks) OnCode(addr uint64, size uint32) {
	for _, v := range h.code {
		if v.contains(addr) {
			v.cb.(CodeCb)(h.cpu, addr, size)
		}
	}
}

func (h *Hooks) OnIntr(intno uint32) {
	for _, v := range h.intr {
		v.cb.(IntrCb)(h.cpu, intno)
	}
}

func (h *Hooks) OnMem(access int, addr uint64, size int, val int64) {
	for _, v := range h.mem {
		if v.wants(access) && v.contains(addr) {
			v.cb.(MemCb)(h.cpu, access, addr, size, val)
		}
	}
}
