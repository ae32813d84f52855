package diskimage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
)

// Inode is one fixed-size metadata record of the inode region
type Inode struct {
	NextInode      int32
	Protect        int32
	NLink          int32
	Size           int32
	UID            int32
	GID            int32
	CTime          int32
	MTime          int32
	ATime          int32
	Direct         [NDirect]int32
	Indirect       [NIndirect]int32
	DoubleIndirect int32
	TripleIndirect int32
}

// Used reports whether the slot holds a live file
func (in *Inode) Used() bool {
	return in.NLink > 0
}

// DecodeInode decodes one record from the first InodeSize bytes of b
func DecodeInode(b []byte) (Inode, error) {
	var in Inode
	if len(b) < InodeSize {
		return in, commonerrors.NewDefragError(commonerrors.ErrStructTooShort, "DecodeInode", "record",
			fmt.Sprintf("%d bytes", len(b)))
	}
	if err := binary.Read(bytes.NewReader(b[:InodeSize]), binary.LittleEndian, &in); err != nil {
		return in, commonerrors.NewDefragError(commonerrors.ErrStructTooShort, "DecodeInode", "record", err.Error())
	}
	return in, nil
}

// Encode writes the record into the first InodeSize bytes of b
func (in *Inode) Encode(b []byte) error {
	if len(b) < InodeSize {
		return commonerrors.NewDefragError(commonerrors.ErrStructTooShort, "EncodeInode", "record",
			fmt.Sprintf("%d bytes", len(b)))
	}
	buf := bytes.NewBuffer(make([]byte, 0, InodeSize))
	if err := binary.Write(buf, binary.LittleEndian, in); err != nil {
		return err
	}
	copy(b, buf.Bytes())
	return nil
}
