package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jonathan/resume-review/internal/localstore"
	"github.com/jonathan/resume-review/internal/observability"
	"github.com/jonathan/resume-review/internal/types"
	"github.com/spf13/cobra"
)

const defaultLocalOwner = "local"

var (
	profilesDB    string
	profilesOwner string

	importFile   string
	importName   string
	importFolder string
	importID     string

	listFolder string
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage profiles in the local store",
}

var profilesImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate a document and save it as a profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLocalStore(cmd.Context(), func(store *localstore.Store) error {
			doc, err := readDocument(importFile)
			if err != nil {
				return err
			}
			profile, err := importProfile(cmd.Context(), store, profilesOwner, importID, importName, importFolder, doc)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %s (%s)\n", profile.ID, profile.Name)
			return err
		})
	},
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLocalStore(cmd.Context(), func(store *localstore.Store) error {
			var folder *string
			if cmd.Flags().Changed("folder") {
				folder = &listFolder
			}
			return listProfiles(cmd.Context(), store, profilesOwner, folder, cmd.OutOrStdout())
		})
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLocalStore(cmd.Context(), func(store *localstore.Store) error {
			return showProfile(cmd.Context(), store, profilesOwner, args[0], cmd.OutOrStdout())
		})
	},
}

func init() {
	profilesCmd.PersistentFlags().StringVar(&profilesDB, "db", "", "SQLite file (default from config)")
	profilesCmd.PersistentFlags().StringVar(&profilesOwner, "owner", defaultLocalOwner, "Owner id for local profiles")

	profilesImportCmd.Flags().StringVarP(&importFile, "file", "f", "", "Path to the document JSON (required)")
	profilesImportCmd.Flags().StringVar(&importName, "name", "", "Profile name (defaults to basics.name)")
	profilesImportCmd.Flags().StringVar(&importFolder, "folder", "", "Folder, e.g. /applications")
	profilesImportCmd.Flags().StringVar(&importID, "id", "", "Profile id (defaults to the document id or a new id)")
	_ = profilesImportCmd.MarkFlagRequired("file")

	profilesListCmd.Flags().StringVar(&listFolder, "folder", "", "Only list this folder (\"/\" for the root)")

	profilesCmd.AddCommand(profilesImportCmd, profilesListCmd, profilesShowCmd)
	rootCmd.AddCommand(profilesCmd)
}

func withLocalStore(ctx context.Context, fn func(*localstore.Store) error) error {
	path := profilesDB
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.LocalDBPath()
	}
	store, err := localstore.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func importProfile(ctx context.Context, store *localstore.Store, owner, id, name, folder string, doc *types.Document) (*types.Profile, error) {
	switch {
	case id != "":
	case doc.ID != "":
		id = doc.ID
	default:
		id = types.NewID()
	}
	if name == "" {
		name = doc.Basics.Name
	}
	doc.ID = id

	profile := &types.Profile{
		ID:         id,
		OwnerID:    owner,
		Name:       name,
		FolderPath: types.NormalizeFolderPath(folder),
		Document:   doc,
	}
	if err := store.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func listProfiles(ctx context.Context, store *localstore.Store, owner string, folder *string, out io.Writer) error {
	profiles, err := store.ListProfiles(ctx, owner, folder)
	if err != nil {
		return err
	}
	observability.NewPrinter(out).PrintProfiles(profiles)
	return nil
}

func showProfile(ctx context.Context, store *localstore.Store, owner, id string, out io.Writer) error {
	profile, err := store.GetProfile(ctx, owner, id)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("profile %s: %w", id, localstore.ErrNotFound)
	}
	return writeJSON(out, "", profile)
}
