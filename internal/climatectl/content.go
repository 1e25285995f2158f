package climatectl

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type articlePayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Content     string    `json:"content"`
	SourceURL   string    `json:"source_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

type dataSourcePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	URL         string `json:"url"`
	APIEndpoint string `json:"api_endpoint,omitempty"`
	Description string `json:"description,omitempty"`
}

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Manage climate content articles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var contentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List articles, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		category, _ := cmd.Flags().GetString("category")

		c := newAPIClient()
		path := "/content"
		if category != "" {
			path += "?category=" + url.QueryEscape(category)
		}
		var articles []articlePayload
		if err := c.Do(cmd.Context(), http.MethodGet, path, nil, &articles); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCATEGORY\tTITLE\tUPDATED")
		for _, a := range articles {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Category, a.Title, a.LastUpdated.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

var contentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an article",
	RunE: func(cmd *cobra.Command, _ []string) error {
		title, _ := cmd.Flags().GetString("title")
		category, _ := cmd.Flags().GetString("category")
		contentFile, _ := cmd.Flags().GetString("content-file")
		sourceURL, _ := cmd.Flags().GetString("source-url")
		if title == "" || category == "" || contentFile == "" {
			return fmt.Errorf("--title, --category, and --content-file are required")
		}

		body, err := os.ReadFile(contentFile)
		if err != nil {
			return fmt.Errorf("read content file: %w", err)
		}

		c, err := adminClient(cmd.Context())
		if err != nil {
			return err
		}

		var created articlePayload
		payload := map[string]string{
			"title":      title,
			"category":   category,
			"content":    string(body),
			"source_url": sourceURL,
		}
		if err := c.Do(cmd.Context(), http.MethodPost, "/admin/content", payload, &created); err != nil {
			return err
		}
		fmt.Printf("Created article %s\n", created.ID)
		return nil
	},
}

var contentDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := adminClient(cmd.Context())
		if err != nil {
			return err
		}
		if err := c.Do(cmd.Context(), http.MethodDelete, "/admin/content/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

var dataSourcesCmd = &cobra.Command{
	Use:   "data-sources",
	Short: "Manage external data sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var dataSourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered data sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := adminClient(cmd.Context())
		if err != nil {
			return err
		}

		var sources []dataSourcePayload
		if err := c.Do(cmd.Context(), http.MethodGet, "/admin/data-sources", nil, &sources); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCATEGORY\tNAME\tURL")
		for _, s := range sources {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Category, s.Name, s.URL)
		}
		return tw.Flush()
	},
}

var dataSourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a data source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		name, _ := cmd.Flags().GetString("name")
		category, _ := cmd.Flags().GetString("category")
		url, _ := cmd.Flags().GetString("url")
		apiEndpoint, _ := cmd.Flags().GetString("api-endpoint")
		description, _ := cmd.Flags().GetString("description")
		if name == "" || category == "" || url == "" {
			return fmt.Errorf("--name, --category, and --url are required")
		}

		c, err := adminClient(cmd.Context())
		if err != nil {
			return err
		}

		var created dataSourcePayload
		payload := map[string]string{
			"name":         name,
			"category":     category,
			"url":          url,
			"api_endpoint": apiEndpoint,
			"description":  description,
		}
		if err := c.Do(cmd.Context(), http.MethodPost, "/admin/data-sources", payload, &created); err != nil {
			return err
		}
		fmt.Printf("Registered data source %s\n", created.ID)
		return nil
	},
}

func init() {
	contentListCmd.Flags().String("category", "", "filter by category")
	contentCreateCmd.Flags().String("title", "", "article title (required)")
	contentCreateCmd.Flags().String("category", "", "article category (required)")
	contentCreateCmd.Flags().String("content-file", "", "markdown file with the article body (required)")
	contentCreateCmd.Flags().String("source-url", "", "optional source link")

	contentCmd.AddCommand(contentListCmd)
	contentCmd.AddCommand(contentCreateCmd)
	contentCmd.AddCommand(contentDeleteCmd)
	rootCmd.AddCommand(contentCmd)

	dataSourcesAddCmd.Flags().String("name", "", "source name (required)")
	dataSourcesAddCmd.Flags().String("category", "", "source category (required)")
	dataSourcesAddCmd.Flags().String("url", "", "source URL (required)")
	dataSourcesAddCmd.Flags().String("api-endpoint", "", "optional API endpoint")
	dataSourcesAddCmd.Flags().String("description", "", "optional description")

	dataSourcesCmd.AddCommand(dataSourcesListCmd)
	dataSourcesCmd.AddCommand(dataSourcesAddCmd)
	rootCmd.AddCommand(dataSourcesCmd)
}
