package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/house-money/internal/cli"
	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/model"
	"github.com/Veraticus/house-money/internal/storage"
)

func tagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage tags",
	}

	cmd.AddCommand(tagsListCmd())
	cmd.AddCommand(tagsAddCmd())
	cmd.AddCommand(tagsUpdateCmd())
	cmd.AddCommand(tagsDeleteCmd())

	return cmd
}

func tagsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			tags, err := store.ListTags(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tags) == 0 {
				printf(out, "%s\n", cli.FormatInfo("No tags defined"))
				return nil
			}

			rows := make([][]string, 0, len(tags))
			for _, tag := range tags {
				rows = append(rows, []string{strconv.FormatInt(tag.ID, 10), tag.Name, tag.Description, tag.Color})
			}
			printf(out, "%s\n", cli.RenderTable([]string{"ID", "Name", "Description", "Color"}, rows))
			return nil
		},
	}
}

func tagsAddCmd() *cobra.Command {
	var description, color string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			tag, err := store.CreateTag(cmd.Context(), args[0], description, color)
			if err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("Tag %q already exists", args[0]), err)
				}
				return err
			}

			printf(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess(fmt.Sprintf("Created tag %q (id %d)", tag.Name, tag.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Tag description")
	cmd.Flags().StringVar(&color, "color", "", "Display color, e.g. #4caf50")

	return cmd
}

func tagsUpdateCmd() *cobra.Command {
	var name, description, color string

	cmd := &cobra.Command{
		Use:   "update TAG",
		Short: "Rename or re-describe a tag",
		Long: `Update a tag. Only the given flags change; the tag keeps its links to
transactions, which show the new name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			tag, err := lookupTag(cmd, store, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("name") {
				tag.Name = name
			}
			if cmd.Flags().Changed("description") {
				tag.Description = description
			}
			if cmd.Flags().Changed("color") {
				tag.Color = color
			}

			if err := store.UpdateTag(cmd.Context(), tag.ID, tag.Name, tag.Description, tag.Color); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError(fmt.Sprintf("Tag %q already exists", tag.Name), err)
				}
				return err
			}

			printf(cmd.OutOrStdout(), "%s\n", cli.FormatSuccess(fmt.Sprintf("Updated tag %q", tag.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New tag name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&color, "color", "", "New display color")

	return cmd
}

func tagsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete TAG",
		Short: "Delete a tag and remove it from every transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := initStorage(cmd.Context(), appConfig, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			tag, err := lookupTag(cmd, store, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ok, err := confirm(cmd, force, fmt.Sprintf("Delete tag %q and remove it from all transactions?", tag.Name))
			if err != nil {
				return err
			}
			if !ok {
				printf(out, "%s\n", cli.FormatInfo("Delete canceled."))
				return nil
			}

			if err := store.DeleteTag(cmd.Context(), tag.ID); err != nil {
				return err
			}

			printf(out, "%s\n", cli.FormatSuccess(fmt.Sprintf("Deleted tag %q", tag.Name)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

// lookupTag finds a tag by name, or by ID when arg is numeric.
func lookupTag(cmd *cobra.Command, store *storage.SQLiteStorage, arg string) (*model.Tag, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		tags, err := store.ListTags(cmd.Context())
		if err != nil {
			return nil, err
		}
		for i := range tags {
			if tags[i].ID == id {
				return &tags[i], nil
			}
		}
	}

	tag, err := store.GetTagByName(cmd.Context(), arg)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewUserError(fmt.Sprintf("Tag %q not found", arg), err)
		}
		return nil, err
	}
	return tag, nil
}
