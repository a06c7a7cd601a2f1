package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillhub/scribe/internal/config"
	"github.com/quillhub/scribe/internal/store"
	"github.com/quillhub/scribe/ot/body"
	"github.com/quillhub/scribe/ot/caret"
	"github.com/quillhub/scribe/ot/common"
)

var inspectFlavor string

var inspectCmd = &cobra.Command{
	Use:   "inspect <documentId>",
	Short: "Dump a document's current snapshot from the configured store, for operational debugging",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFlavor, "flavor", "body", `OT flavor to inspect ("body" or "caret")`)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	documentId := common.DocumentId(args[0])
	ctx := context.Background()

	switch inspectFlavor {
	case "caret":
		return inspectFlavor2(ctx, cmd, cfg.Storage, documentId)
	default:
		return inspectBody(ctx, cmd, cfg.Storage, documentId)
	}
}

func inspectBody(ctx context.Context, cmd *cobra.Command, cfg config.StorageConfig, documentId common.DocumentId) error {
	s, err := openBodyStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	handle, err := s.GetFile(ctx, common.FileId("body:"+string(documentId)))
	if err != nil {
		return err
	}
	snap, err := handle.GetSnapshot(ctx, nil, nil)
	if err != nil {
		return err
	}
	return printSnapshot(cmd, snap)
}

func inspectFlavor2(ctx context.Context, cmd *cobra.Command, cfg config.StorageConfig, documentId common.DocumentId) error {
	s, err := openCaretStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	handle, err := s.GetFile(ctx, common.FileId("caret:"+string(documentId)))
	if err != nil {
		return err
	}
	snap, err := handle.GetSnapshot(ctx, nil, nil)
	if err != nil {
		return err
	}
	return printSnapshot(cmd, snap)
}

func printSnapshot(cmd *cobra.Command, snap interface{}) error {
	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func openBodyStore(cfg config.StorageConfig) (store.FileStore[body.Delta], error) {
	if cfg.Backend == "badger" {
		return store.NewBadgerStore[body.Delta](cfg.Dir+"/body", body.New(), store.JSONCodec[body.Delta]{}, store.NewLocalNotifier())
	}
	return store.NewMemStore[body.Delta](body.New(), store.JSONCodec[body.Delta]{}, store.NewLocalNotifier()), nil
}

func openCaretStore(cfg config.StorageConfig) (store.FileStore[caret.Delta], error) {
	if cfg.Backend == "badger" {
		return store.NewBadgerStore[caret.Delta](cfg.Dir+"/caret", caret.New(), store.JSONCodec[caret.Delta]{}, store.NewLocalNotifier())
	}
	return store.NewMemStore[caret.Delta](caret.New(), store.JSONCodec[caret.Delta]{}, store.NewLocalNotifier()), nil
}
