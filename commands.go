package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"taskmanager/internal/models"
	"taskmanager/internal/store"
	"taskmanager/internal/ui"
)

func (a *app) addCmd() *cobra.Command {
	var description, priority, due string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := taskInput(args[0], description, priority, due)
			if err := input.Validate(); err != nil {
				return err
			}

			task, err := a.store.Add(cmd.Context(), input.Name, input.Description, input.Priority, input.DueDate)
			if err != nil {
				return fmt.Errorf("failed to add task: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added task %d: %s\n", a.store.Len(), task.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&priority, "priority", "p", models.DefaultPriority, "priority (high, medium, low)")
	cmd.Flags().StringVar(&due, "due", time.Now().Format(models.DateLayout), "due date (YYYY-MM-DD)")

	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var (
		filter     store.Filter
		sortKey    string
		descending bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks, optionally filtered and sorted.

Sorting reorders the stored collection so that row numbers printed here
stay valid for update and delete.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if sortKey != "" {
				if _, err := a.store.Sort(sortKey, descending); err != nil {
					return err
				}
				if err := a.store.Save(ctx); err != nil {
					return fmt.Errorf("failed to save sorted tasks: %w", err)
				}
			}

			return a.printTasks(cmd.OutOrStdout(), a.store.Filter(filter))
		},
	}

	cmd.Flags().StringVar(&filter.Name, "name", "", "case-insensitive name substring")
	cmd.Flags().StringVar(&filter.Priority, "priority", store.PriorityAll, "priority (all, high, medium, low)")
	cmd.Flags().StringVar(&filter.DueDate, "due", "", "exact due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sortKey, "sort", "", "sort by name, priority or due_date")
	cmd.Flags().BoolVar(&descending, "desc", false, "sort descending")

	return cmd
}

func (a *app) printTasks(out io.Writer, tasks []models.Task) error {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return nil
	}

	now := time.Now()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tPRIORITY\tDUE\tDESCRIPTION")
	for i := range tasks {
		due := tasks[i].DueDate
		if tasks[i].IsOverdue(now) {
			due += " !"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			a.store.IndexOf(tasks[i].ID)+1, tasks[i].Name, tasks[i].Priority, due, tasks[i].Description)
	}
	return tw.Flush()
}

func (a *app) updateCmd() *cobra.Command {
	var name, description, priority, due string

	cmd := &cobra.Command{
		Use:   "update <n>",
		Short: "Update the task at row n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseRow(args[0])
			if err != nil {
				return err
			}

			tasks := a.store.Tasks()
			if index < 0 || index >= len(tasks) {
				return fmt.Errorf("no task at row %s", args[0])
			}
			current := tasks[index]

			flags := cmd.Flags()
			if !flags.Changed("name") {
				name = current.Name
			}
			if !flags.Changed("description") {
				description = current.Description
			}
			if !flags.Changed("priority") {
				priority = current.Priority
			}
			if !flags.Changed("due") {
				due = current.DueDate
			}

			input := taskInput(name, description, priority, due)
			if err := input.Validate(); err != nil {
				return err
			}

			ok, err := a.store.UpdateByID(cmd.Context(), current.ID, input.Name, input.Description, input.Priority, input.DueDate)
			if err != nil {
				return fmt.Errorf("failed to update task: %w", err)
			}
			if !ok {
				return fmt.Errorf("no task at row %s", args[0])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %d: %s\n", index+1, input.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority (high, medium, low)")
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD)")

	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <n>",
		Short: "Delete the task at row n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseRow(args[0])
			if err != nil {
				return err
			}

			ok, err := a.store.Delete(cmd.Context(), index)
			if err != nil {
				return fmt.Errorf("failed to delete task: %w", err)
			}
			if !ok {
				return fmt.Errorf("no task at row %s", args[0])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", index+1)
			return nil
		},
	}
}

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse tasks in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run(cmd.Context(), a.store)
		},
	}
}

// taskInput trims and normalizes raw user input.
func taskInput(name, description, priority, due string) models.Task {
	return models.Task{
		Name:        strings.TrimSpace(name),
		Description: description,
		Priority:    models.NormalizePriority(priority),
		DueDate:     strings.TrimSpace(due),
	}
}

// parseRow converts a 1-based row number into an index.
func parseRow(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid row number %q", s)
	}
	return n - 1, nil
}
