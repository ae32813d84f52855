package cmd

import (
	"fmt"
	"io"

	"github.com/deploymenttheory/go-disk-defrag/internal/config"
	"github.com/deploymenttheory/go-disk-defrag/internal/defrag"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
	"github.com/deploymenttheory/go-disk-defrag/internal/report"
	"github.com/spf13/cobra"
)

// newInspectCmd plans a defragmentation without writing an image
func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <input-image>",
		Short: "Show the superblock, files and planned layout of an image",
		Long: `inspect decodes an image, builds the same layout and block mapping a
defragmentation run would, and prints them with each file's fragment
count. No image is written.`,
		Args: exactlyOneImage,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := diskimage.Load(args[0])
			if err != nil {
				return err
			}
			plan, err := defrag.Inspect(input)
			if err != nil {
				return err
			}

			r := report.Build(plan)
			r.Input = args[0]
			printPlan(cmd.OutOrStdout(), r)

			if path := config.Instance.Report.Path; path != "" {
				return writeReport(r, path, config.Instance.Report.Format)
			}
			return nil
		},
	}
}

func printPlan(w io.Writer, r *report.Report) {
	sb := r.Superblock
	fmt.Fprintln(w, "Superblock:")
	fmt.Fprintf(w, "  blocksize    = %d\n", sb.BlockSize)
	fmt.Fprintf(w, "  inode_offset = %d blocks\n", sb.InodeOffset)
	fmt.Fprintf(w, "  data_offset  = %d blocks\n", sb.DataOffset)
	fmt.Fprintf(w, "  swap_offset  = %d blocks\n", sb.SwapOffset)
	fmt.Fprintf(w, "  free_inode   = %d\n", sb.FreeInode)
	fmt.Fprintf(w, "  free_block   = %d\n", sb.FreeBlock)
	fmt.Fprintf(w, "Used inodes: %d\n", len(r.Files))

	fmt.Fprintln(w, "Layout plan:")
	for _, f := range r.Files {
		fmt.Fprintf(w, "  inode=%d size=%d start=%d ptr_blocks=%d data_blocks=%d fragments=%d\n",
			f.Inode, f.SizeBytes, f.StartBlock, f.PointerBlocks, f.DataBlocks, f.Fragments)
	}
	fmt.Fprintf(w, "Next free block index: %d of %d\n", r.NextFree, r.DataBlocks)
	fmt.Fprintf(w, "Mapped blocks: %d (%d pointer blocks)\n", r.MappedBlocks, r.PointerBlocks)
}
