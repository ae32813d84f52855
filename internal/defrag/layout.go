package defrag

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
)

// FilePlacement is the contiguous range of new block indices reserved for one file
type FilePlacement struct {
	InodeIndex        int
	StartBlock        int
	PointerBlockCount int
	DataBlockCount    int
}

// End is the first index past the placement
func (p FilePlacement) End() int {
	return p.StartBlock + p.PointerBlockCount + p.DataBlockCount
}

// PlanLayout reserves back-to-back ranges in record order and returns the
// first index no file owns
func PlanLayout(records []FileRecord) ([]FilePlacement, int, error) {
	placements := make([]FilePlacement, 0, len(records))
	cursor := 0
	for _, rec := range records {
		if rec.PointerBlockCount < 0 || rec.DataBlockCount < 0 {
			return nil, 0, commonerrors.NewDefragError(commonerrors.ErrInvalidArgument, "PlanLayout",
				fmt.Sprintf("inode %d", rec.InodeIndex),
				fmt.Sprintf("pointer=%d data=%d", rec.PointerBlockCount, rec.DataBlockCount))
		}
		placements = append(placements, FilePlacement{
			InodeIndex:        rec.InodeIndex,
			StartBlock:        cursor,
			PointerBlockCount: rec.PointerBlockCount,
			DataBlockCount:    rec.DataBlockCount,
		})
		cursor += rec.TotalBlocks()
	}
	return placements, cursor, nil
}
