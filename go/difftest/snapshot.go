package difftest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"strings"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/lunixbochs/difftest/go/models"
)

// snapshot format, big endian:
//
// header
// uint32(format version)
// uint32(crc32 of compressed body)
// uint32(length of compressed body)
// remainder is snappy block-compressed
//
// -- body --
// [32]byte isa string, right-null-padded
// uint32(pc), 32x uint32(gpr)
// uint32(csr count), 1..n: uint16(addr), uint32(value)
// uint32(fpr count), 1..n: uint32(bits)
// uint32(vlenb), <32*vlenb bytes of vector registers>
// uint32(region count), 1..n: uint64(base), uint64(size), <size bytes>

const snapshotVersion = 2

type snapshotHeader struct {
	Version uint32
	Crc     uint32
	Length  uint32
}

type csrVal struct {
	Addr uint16
	Val  uint32
}

var snapshotOrder = binary.BigEndian

// SaveSnapshot serializes the architectural state and memory of ref.
func SaveSnapshot(ref *Ref) ([]byte, error) {
	var body bytes.Buffer
	s := models.StrucStream{Stream: &body, Order: snapshotOrder}

	isa := make([]byte, 32)
	copy(isa, ref.isa.Name)
	body.Write(isa)

	regs := ref.Regs()
	if err := s.Pack(&regs); err != nil {
		return nil, err
	}

	addrs := csrAddrs()
	if err := s.Pack(uint32(len(addrs))); err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		if err := s.Pack(&csrVal{addr, ref.ReadCSR(addr)}); err != nil {
			return nil, errors.Wrapf(err, "csr %#x", addr)
		}
	}

	fprs := 0
	if ref.isa.Has('f') {
		fprs = 32
	}
	if err := s.Pack(uint32(fprs)); err != nil {
		return nil, err
	}
	for i := 0; i < fprs; i++ {
		bits, _ := ref.ReadFPRBits(i)
		if err := s.Pack(bits); err != nil {
			return nil, errors.Wrapf(err, "fpr %d", i)
		}
	}

	width := ref.VectorWidth()
	if err := s.Pack(uint32(width)); err != nil {
		return nil, err
	}
	for i := 0; i < 32 && width > 0; i++ {
		v, _ := ref.ReadVectorRegister(i)
		body.Write(v)
	}

	if err := s.Pack(uint32(len(ref.layout))); err != nil {
		return nil, err
	}
	for _, r := range ref.layout {
		if err := s.Pack(&r); err != nil {
			return nil, err
		}
		mem, err := ref.cpu.MemRead(r.Base, r.Size)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", r)
		}
		body.Write(mem)
	}

	data := snappy.Encode(nil, body.Bytes())
	var out bytes.Buffer
	s = models.StrucStream{Stream: &out, Order: snapshotOrder}
	if err := s.Pack(&snapshotHeader{snapshotVersion, crc32.ChecksumIEEE(data), uint32(len(data))}); err != nil {
		return nil, err
	}
	out.Write(data)
	return out.Bytes(), nil
}

// snapshot is a decoded snapshot body.
type snapshot struct {
	regs    Regs
	csrs    []csrVal
	fprs    []uint32
	vec     []byte
	regions []Region
	mem     [][]byte
}

func decodeSnapshot(snap []byte) (string, *snapshot, error) {
	var hdr snapshotHeader
	in := bytes.NewBuffer(snap)
	s := models.StrucStream{Stream: in, Order: snapshotOrder}
	if err := s.Unpack(&hdr); err != nil {
		return "", nil, errors.Wrap(err, "snapshot header")
	}
	if hdr.Version != snapshotVersion {
		return "", nil, errors.Errorf("unsupported snapshot version %d", hdr.Version)
	}
	data := in.Bytes()
	if uint32(len(data)) != hdr.Length || crc32.ChecksumIEEE(data) != hdr.Crc {
		return "", nil, errors.New("snapshot checksum mismatch")
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return "", nil, errors.Wrap(err, "snapshot body")
	}
	body := bytes.NewBuffer(raw)
	s = models.StrucStream{Stream: body, Order: snapshotOrder}

	isa := strings.TrimRight(string(body.Next(32)), "\x00")
	snp := &snapshot{}
	if err := s.Unpack(&snp.regs); err != nil {
		return "", nil, err
	}

	var count uint32
	if err := s.Unpack(&count); err != nil {
		return "", nil, err
	}
	snp.csrs = make([]csrVal, count)
	for i := range snp.csrs {
		if err := s.Unpack(&snp.csrs[i]); err != nil {
			return "", nil, err
		}
	}

	if err := s.Unpack(&count); err != nil {
		return "", nil, err
	}
	if count > 32 {
		return "", nil, errors.Errorf("snapshot has %d f registers", count)
	}
	snp.fprs = make([]uint32, count)
	for i := range snp.fprs {
		if err := s.Unpack(&snp.fprs[i]); err != nil {
			return "", nil, err
		}
	}

	var width uint32
	if err := s.Unpack(&width); err != nil {
		return "", nil, err
	}
	snp.vec = body.Next(int(width) * 32)
	if len(snp.vec) != int(width)*32 {
		return "", nil, errors.New("truncated vector state")
	}

	if err := s.Unpack(&count); err != nil {
		return "", nil, err
	}
	for i := uint32(0); i < count; i++ {
		var r Region
		if err := s.Unpack(&r); err != nil {
			return "", nil, err
		}
		mem := body.Next(int(r.Size))
		if uint64(len(mem)) != r.Size {
			return "", nil, errors.Errorf("truncated memory for %s", r)
		}
		snp.regions = append(snp.regions, r)
		snp.mem = append(snp.mem, mem)
	}
	return isa, snp, nil
}

// LoadSnapshot restores a snapshot into ref. Every saved region must lie within ref's layout.
// On error ref is left as it was.
func LoadSnapshot(ref *Ref, snap []byte) error {
	isa, snp, err := decodeSnapshot(snap)
	if err != nil {
		return err
	}
	if isa != ref.isa.Name {
		return errors.Errorf("snapshot isa %q does not match %q", isa, ref.isa.Name)
	}
	if width := len(snp.vec) / 32; width != ref.VectorWidth() {
		return errors.Errorf("snapshot vector width %d does not match %d", width, ref.VectorWidth())
	}
	for _, r := range snp.regions {
		if err := ref.check(r.Base, int(r.Size)); err != nil {
			return errors.Wrapf(err, "snapshot region %s", r)
		}
	}
	return ref.atomic(snp.regions, func() error {
		if err := ref.setRegs(&snp.regs); err != nil {
			return err
		}
		for i, bits := range snp.fprs {
			if !ref.WriteFPRBits(i, bits) {
				return errors.Errorf("restoring fpr %d", i)
			}
		}
		if len(snp.vec) > 0 && !ref.SyncVectorFile(snp.vec) {
			return errors.New("restoring vector registers")
		}
		// CSRs follow the f and v registers so the saved mstatus dirty bits win. Counters and ids are left alone.
		for _, c := range snp.csrs {
			if csrMask(c.Addr) != 0 {
				ref.WriteCSR(c.Addr, c.Val)
			}
		}
		for i, r := range snp.regions {
			if err := ref.SyncMem(r.Base, snp.mem[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// atomic runs fn and puts the engine context and the given memory back if it fails.
func (r *Ref) atomic(regions []Region, fn func() error) error {
	ctx, err := r.cpu.ContextSave(nil)
	if err != nil {
		return errors.Wrap(err, "saving context")
	}
	undo := make([][]byte, len(regions))
	for i, reg := range regions {
		if undo[i], err = r.cpu.MemRead(reg.Base, reg.Size); err != nil {
			return errors.Wrapf(err, "reading %s", reg)
		}
	}
	err = fn()
	if err == nil {
		return nil
	}
	r.mutate()
	for i, reg := range regions {
		if rerr := r.cpu.MemWrite(reg.Base, undo[i]); rerr != nil {
			r.logf("rollback %s: %v", reg, rerr)
		}
	}
	if rerr := r.cpu.ContextRestore(ctx); rerr != nil {
		r.logf("rollback registers: %v", rerr)
	}
	return err
}
