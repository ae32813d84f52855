// Package report renders a defragmentation plan as json, yaml or plist
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/common/fsutil"
	"github.com/deploymenttheory/go-disk-defrag/internal/common/plistutil"
	"github.com/deploymenttheory/go-disk-defrag/internal/defrag"
	"gopkg.in/yaml.v3"
)

// Format is a report encoding
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatPlist Format = "plist"
)

// Superblock mirrors the decoded superblock fields
type Superblock struct {
	BlockSize   int32 `json:"blocksize" yaml:"blocksize" plist:"blocksize"`
	InodeOffset int32 `json:"inode_offset" yaml:"inode_offset" plist:"inode_offset"`
	DataOffset  int32 `json:"data_offset" yaml:"data_offset" plist:"data_offset"`
	SwapOffset  int32 `json:"swap_offset" yaml:"swap_offset" plist:"swap_offset"`
	FreeInode   int32 `json:"free_inode" yaml:"free_inode" plist:"free_inode"`
	FreeBlock   int32 `json:"free_block" yaml:"free_block" plist:"free_block"`
}

// File describes one used inode and where it lands
type File struct {
	Inode         int   `json:"inode" yaml:"inode" plist:"inode"`
	SizeBytes     int32 `json:"size_bytes" yaml:"size_bytes" plist:"size_bytes"`
	DataBlocks    int   `json:"data_blocks" yaml:"data_blocks" plist:"data_blocks"`
	PointerBlocks int   `json:"pointer_blocks" yaml:"pointer_blocks" plist:"pointer_blocks"`
	StartBlock    int   `json:"start_block" yaml:"start_block" plist:"start_block"`
	EndBlock      int   `json:"end_block" yaml:"end_block" plist:"end_block"`
	Fragments     int   `json:"fragments" yaml:"fragments" plist:"fragments"`
}

// Report is the serialisable summary of a plan or completed run
type Report struct {
	Input         string     `json:"input,omitempty" yaml:"input,omitempty" plist:"input,omitempty"`
	Output        string     `json:"output,omitempty" yaml:"output,omitempty" plist:"output,omitempty"`
	Superblock    Superblock `json:"superblock" yaml:"superblock" plist:"superblock"`
	Files         []File     `json:"files" yaml:"files" plist:"files"`
	MappedBlocks  int        `json:"mapped_blocks" yaml:"mapped_blocks" plist:"mapped_blocks"`
	PointerBlocks int        `json:"pointer_blocks" yaml:"pointer_blocks" plist:"pointer_blocks"`
	DataBlocks    int        `json:"data_blocks" yaml:"data_blocks" plist:"data_blocks"`
	NextFree      int        `json:"next_free" yaml:"next_free" plist:"next_free"`
	Applied       bool       `json:"applied" yaml:"applied" plist:"applied"`
	FreeBlockHead int32      `json:"free_block_head" yaml:"free_block_head" plist:"free_block_head"`
	FreeInodeHead int32      `json:"free_inode_head" yaml:"free_inode_head" plist:"free_inode_head"`
}

// Build summarises a plan. The superblock is the input's; Applied is false.
func Build(plan *defrag.Plan) *Report {
	sb := plan.Superblock
	r := &Report{
		Superblock: Superblock{
			BlockSize:   sb.BlockSize,
			InodeOffset: sb.InodeOffset,
			DataOffset:  sb.DataOffset,
			SwapOffset:  sb.SwapOffset,
			FreeInode:   sb.FreeInode,
			FreeBlock:   sb.FreeBlock,
		},
		Files:         make([]File, 0, len(plan.Records)),
		MappedBlocks:  plan.BlockMap.Len(),
		PointerBlocks: plan.BlockMap.PointerCount(),
		DataBlocks:    int(sb.SwapOffset - sb.DataOffset),
		NextFree:      plan.NextFree,
		FreeBlockHead: sb.FreeBlock,
		FreeInodeHead: sb.FreeInode,
	}

	frags := plan.BlockMap.FileFragments()
	for i, rec := range plan.Records {
		p := plan.Placements[i]
		r.Files = append(r.Files, File{
			Inode:         rec.InodeIndex,
			SizeBytes:     rec.SizeBytes,
			DataBlocks:    rec.DataBlockCount,
			PointerBlocks: rec.PointerBlockCount,
			StartBlock:    p.StartBlock,
			EndBlock:      p.End(),
			Fragments:     frags[rec.InodeIndex],
		})
	}
	return r
}

// BuildFromResult summarises a completed run, including the rebuilt list heads
func BuildFromResult(res *defrag.Result) *Report {
	r := Build(res.Plan)
	r.Applied = true
	r.FreeBlockHead = res.FreeBlockHead
	r.FreeInodeHead = res.FreeInodeHead
	return r
}

// ParseFormat maps a format name to a Format. An empty name infers the format
// from the path's extension, defaulting to json.
func ParseFormat(name, path string) (Format, error) {
	if name == "" {
		name = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if name == "" {
			return FormatJSON, nil
		}
	}
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "plist":
		return FormatPlist, nil
	}
	return "", commonerrors.NewDefragError(commonerrors.ErrInvalidArgument, "ParseFormat", name, "want json, yaml or plist")
}

// Encode renders the report in the given format
func (r *Report) Encode(format Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(r, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case FormatYAML:
		data, err = yaml.Marshal(r)
	case FormatPlist:
		data, err = plistutil.Marshal(r, plistutil.FormatXML)
	default:
		return nil, commonerrors.NewDefragError(commonerrors.ErrInvalidArgument, "EncodeReport", string(format), "")
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s report: %w", format, err)
	}
	return data, nil
}

// Write encodes the report and writes it to path atomically
func (r *Report) Write(path string, format Format) error {
	data, err := r.Encode(format)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}
