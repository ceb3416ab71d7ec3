package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Nandox7/goprinthost/internal/app"
	"github.com/Nandox7/goprinthost/internal/config"
	"github.com/Nandox7/goprinthost/internal/hosts"
	"github.com/Nandox7/goprinthost/internal/mockhost"
	"github.com/Nandox7/goprinthost/internal/transport"
	"github.com/Nandox7/goprinthost/internal/utils"
	"github.com/spf13/cobra"
)

const version = "0.2.1"

var (
	configPath string
	uploadPath string
	startPrint bool
	mockOpts   = mockhost.DefaultOptions()
)

func main() {
	// Get default config path
	defaultConfigPath, err := config.DefaultConfigPath()
	if err != nil {
		defaultConfigPath = "./config.toml"
	}

	// Root command
	rootCmd := &cobra.Command{
		Use:   "goprinthost",
		Short: "Upload G-code to a Repetier-Server print host",
		Long:  "Client for Repetier-Server print hosts. Verifies reachability and identity of the server, then transfers model/G-code files with live progress.",
	}

	// Test command
	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Probe the configured print host",
		RunE:  runTest,
	}
	testCmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to config file")

	// Upload command
	uploadCmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a G-code file to the print host",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}
	uploadCmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to config file")
	uploadCmd.Flags().StringVar(&uploadPath, "upload-path", "", "Name the server should store the file under (default: source filename)")
	uploadCmd.Flags().BoolVar(&startPrint, "start-print", false, "Start printing immediately after the upload")

	// Generate-config command
	generateConfigCmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return utils.GenerateConfig(configPath)
		},
	}
	generateConfigCmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to config file")

	// Mock-server command
	mockServerCmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a simulated print host for development and testing",
		RunE:  runMockServer,
	}
	mockServerCmd.Flags().StringVar(&mockOpts.BindAddress, "bind", mockOpts.BindAddress, "Bind address")
	mockServerCmd.Flags().IntVar(&mockOpts.Port, "port", mockOpts.Port, "TCP port")
	mockServerCmd.Flags().StringVar(&mockOpts.APIKey, "api-key", "", "Require this API key on every request")
	mockServerCmd.Flags().StringVar(&mockOpts.Name, "name", mockOpts.Name, "Identity reported on the probe endpoint")

	// Version command
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("goprinthost version %s\n", version)
		},
	}

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(generateConfigCmd)
	rootCmd.AddCommand(mockServerCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadContainer() (*app.Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	container, err := app.NewContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build container: %w", err)
	}

	return container, nil
}

func runTest(cmd *cobra.Command, args []string) error {
	container, err := loadContainer()
	if err != nil {
		return err
	}

	host := container.Host
	if err := host.Test(); err != nil {
		return fmt.Errorf("%s", host.FailureMessage(err.Error()))
	}

	fmt.Println(host.SuccessMessage())
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	container, err := loadContainer()
	if err != nil {
		return err
	}

	source := args[0]
	target := uploadPath
	if target == "" {
		target = filepath.Base(source)
	}

	req := hosts.UploadRequest{
		SourcePath: source,
		UploadPath: target,
		StartPrint: startPrint,
	}

	// SIGINT sets the cooperative cancel flag on the next progress tick.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var uploadErr string
	ok := container.Host.Upload(req,
		func(p transport.Progress, cancel *bool) {
			select {
			case <-ctx.Done():
				*cancel = true
			default:
			}
			if p.UploadTotal > 0 {
				fmt.Printf("\r%3.0f%% (%d/%d bytes)", p.Fraction()*100, p.UploadNow, p.UploadTotal)
			}
		},
		func(msg string) {
			uploadErr = msg
		})
	fmt.Println()

	if !ok {
		if uploadErr != "" {
			return fmt.Errorf("%s", container.Host.FailureMessage(uploadErr))
		}
		return fmt.Errorf("upload cancelled")
	}

	fmt.Printf("Uploaded %s as %s\n", source, filepath.Base(target))
	return nil
}

func runMockServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := app.BuildDefaultLogger("info")

	server := mockhost.NewServer(mockOpts, logger)
	return server.StartWithContext(ctx)
}
