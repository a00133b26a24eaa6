package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultRuntimeURL = "https://github.com/vmware-labs/webassembly-language-runtimes/releases/download/php%2F8.2.6%2B20230714-11be424/php-cgi-8.2.6.wasm"

var fetchCmd = &cobra.Command{
	Use:   "fetch-runtime",
	Short: "Download the interpreter WASI binary",
	Long: `Download the interpreter binary to the configured runtime path.

Does nothing if the file already exists. Pass --url to fetch a different
build.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("url", defaultRuntimeURL, "Runtime download URL")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	url, _ := cmd.Flags().GetString("url")

	if _, err := os.Stat(cfg.Runtime); err == nil {
		fmt.Printf("%s already exists\n", cfg.Runtime)
		return nil
	}

	fmt.Printf("Downloading %s...\n", url)
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	if dir := filepath.Dir(cfg.Runtime); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(cfg.Runtime), ".wisp-runtime-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), cfg.Runtime); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", cfg.Runtime)
	return nil
}
