package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/alden/internal/models"
	"github.com/joescharf/alden/internal/output"
	"github.com/joescharf/alden/internal/state"
)

var (
	docsName string
	docsType string
)

var docsCmd = &cobra.Command{
	Use:     "docs",
	Aliases: []string{"doc", "documents"},
	Short:   "Manage uploaded study documents",
}

var docsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List uploaded documents",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return docsListRun(cmd.Context())
	},
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a PDF, image, or text file",
	Long: `Upload a document to the backend. The type is inferred from the file
extension unless --type is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return docsUploadRun(cmd.Context(), args[0])
	},
}

var docsRemoveCmd = &cobra.Command{
	Use:     "rm <document-id>",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove a document",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return docsRemoveRun(cmd.Context(), args[0])
	},
}

var docsContentCmd = &cobra.Command{
	Use:   "content <document-id>",
	Short: "Print the extracted content of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return docsContentRun(cmd.Context(), args[0])
	},
}

func init() {
	docsUploadCmd.Flags().StringVar(&docsName, "name", "", "Display name (default: file name)")
	docsUploadCmd.Flags().StringVarP(&docsType, "type", "t", "", "Document type (pdf, image, text)")

	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsRemoveCmd)
	docsCmd.AddCommand(docsContentCmd)
	rootCmd.AddCommand(docsCmd)
}

// inferDocumentType maps a file extension to a document type.
func inferDocumentType(path string) models.DocumentType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return models.DocumentTypePDF
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".heic":
		return models.DocumentTypeImage
	default:
		return models.DocumentTypeText
	}
}

// humanSize renders a byte count as B, KB or MB.
func humanSize(n *int64) string {
	if n == nil {
		return "-"
	}
	switch b := *n; {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func docsListRun(ctx context.Context) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	a.LoadDocuments(ctx)
	if err := recordedError(a); err != nil {
		return err
	}

	docs := a.Snapshot().Documents
	if len(docs) == 0 {
		ui.Info("No documents uploaded. Use 'alden docs upload <file>' to add one.")
		return nil
	}

	table := ui.Table([]string{"ID", "Name", "Type", "Size", "Uploaded"})
	for _, d := range docs {
		table.Append([]string{
			d.ID,
			output.Cyan(d.Name),
			string(d.Type),
			humanSize(d.Size),
			d.UploadDate.Local().Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	return nil
}

func docsUploadRun(ctx context.Context, path string) error {
	typ := models.DocumentType(docsType)
	if docsType == "" {
		typ = inferDocumentType(path)
	}
	in := state.DocumentUpload{Name: docsName, Type: typ, Path: path}

	if dryRun {
		ui.DryRunMsg("Would upload %s as %s", path, typ)
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	doc, err := a.UploadDocument(ctx, in)
	if err != nil {
		return err
	}
	ui.Success("Uploaded %s (%s, %s)", output.Cyan(doc.Name), doc.Type, humanSize(doc.Size))
	ui.VerboseLog("Document ID: %s", doc.ID)
	return nil
}

func docsRemoveRun(ctx context.Context, id string) error {
	if dryRun {
		ui.DryRunMsg("Would remove document %s", id)
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	if err := a.RemoveDocument(ctx, id); err != nil {
		return err
	}
	ui.Success("Removed document %s", id)
	return nil
}

func docsContentRun(ctx context.Context, id string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	dc, err := a.DocumentContent(ctx, id)
	if err != nil {
		return err
	}
	ui.VerboseLog("Type: %s", dc.Type)
	fmt.Fprintln(ui.Out, dc.Content)
	return nil
}
