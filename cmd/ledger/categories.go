package main

import (
	"context"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

func categoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage account categories",
		Long: `Categories group accounts. A top-level category fixes the type
(ASSET, LIABILITY, INCOME or EXPENSE) of every account beneath it.`,
	}
	cmd.AddCommand(listCategoriesCmd(a), addCategoryCmd(a))
	return cmd
}

func listCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				categories, err := store.ListCategories(ctx, a.cfg.Ledger.UserID)
				if err != nil {
					return err
				}
				r, err := a.renderer(ctx, store)
				if err != nil {
					return err
				}
				return r.Categories(categories)
			})
		},
	}
}

func addCategoryCmd(a *app) *cobra.Command {
	var (
		typeName string
		parentID string
		order    int
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := &model.Category{
				UserID: a.cfg.Ledger.UserID,
				Name:   strings.TrimSpace(args[0]),
			}
			if typeName != "" {
				t, err := model.ParseAccountType(typeName)
				if err != nil {
					return err
				}
				category.Type = t
			}
			if parentID != "" {
				category.ParentID = &parentID
			}
			if cmd.Flags().Changed("order") {
				category.Order = &order
			}

			return a.withStore(cmd, func(ctx context.Context, store *storage.SQLiteStorage) error {
				if err := store.CreateCategory(ctx, category); err != nil {
					return err
				}
				a.success("Added category %s (%s)", category.Name, category.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "", "account type for a top-level category")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent category ID")
	cmd.Flags().IntVar(&order, "order", 0, "display order among siblings")
	return cmd
}
