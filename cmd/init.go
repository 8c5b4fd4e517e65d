package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/localdeck/localdeck/internal/git"
	"github.com/localdeck/localdeck/internal/ports"
	"github.com/localdeck/localdeck/internal/prompt"
	"github.com/localdeck/localdeck/internal/runner"
	"github.com/localdeck/localdeck/internal/templates"
	"github.com/localdeck/localdeck/internal/validate"
	"github.com/localdeck/localdeck/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Initialize a new project",
	Long: `Initialize a new project as the active deployment unit.

Clones both source repositories, generates credentials, renders the
compose topology and proxy configuration, and issues a local TLS
certificate when mkcert is available.

Any detail not supplied as a flag is asked for interactively.

Examples:
  localdeck init shop --stack laravel-vue --domain shop.local \
    --backend-repo git@github.com:acme/shop-api.git \
    --frontend-repo git@github.com:acme/shop-web.git
  localdeck init`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var (
	initStackFlag        string
	initDomainFlag       string
	initBackendRepoFlag  string
	initFrontendRepoFlag string
	initNoSSLFlag        bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initStackFlag, "stack", "", "stack kind (laravel-vue or springboot-vue)")
	initCmd.Flags().StringVar(&initDomainFlag, "domain", "", "local domain name (e.g. myapp.local)")
	initCmd.Flags().StringVar(&initBackendRepoFlag, "backend-repo", "", "backend repository URL")
	initCmd.Flags().StringVar(&initFrontendRepoFlag, "frontend-repo", "", "frontend repository URL")
	initCmd.Flags().BoolVar(&initNoSSLFlag, "no-ssl", false, "skip local certificate issuance")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ws := activeWorkspace(cfg)
	if ws.Exists() {
		project, err := ws.Load()
		if err == nil {
			return fmt.Errorf("a project is already active: %q (run 'localdeck destroy' first)", project.Name)
		}
		return fmt.Errorf("a project is already active (run 'localdeck destroy' first)")
	}

	answers := prompt.ProjectAnswers{
		Stack:        initStackFlag,
		Domain:       initDomainFlag,
		BackendRepo:  initBackendRepoFlag,
		FrontendRepo: initFrontendRepoFlag,
	}
	if len(args) > 0 {
		answers.Name = validate.NormalizeProjectName(args[0])
	}
	if err := prompt.CollectProject(&answers); err != nil {
		return err
	}

	if err := validate.ProjectName(answers.Name); err != nil {
		return err
	}
	stack, err := workspace.ParseStack(answers.Stack)
	if err != nil {
		return err
	}
	if err := validate.Domain(answers.Domain); err != nil {
		return err
	}
	if err := validate.RepoURL(answers.BackendRepo); err != nil {
		return fmt.Errorf("backend repository: %w", err)
	}
	if err := validate.RepoURL(answers.FrontendRepo); err != nil {
		return fmt.Errorf("frontend repository: %w", err)
	}

	if err := git.CheckInstalled(); err != nil {
		return err
	}

	// Refuse to continue when the ports the stack needs are taken.
	assigned := cfg.DefaultPortsFor(string(stack))
	if conflicts := ports.Conflicts(assigned); len(conflicts) > 0 {
		return fmt.Errorf("ports already in use: %s (adjust default_ports in config)",
			strings.Join(conflicts, ", "))
	}

	dbName := strings.ReplaceAll(answers.Name, "-", "_")
	now := time.Now()
	project := &workspace.Project{
		Name:   answers.Name,
		Stack:  stack,
		Domain: answers.Domain,
		Repos: workspace.Repos{
			Backend:  answers.BackendRepo,
			Frontend: answers.FrontendRepo,
		},
		Ports: assigned,
		Database: workspace.Database{
			Engine: stack.DatabaseEngine(),
			Host:   stack.DatabaseService(),
			Port:   databasePort(stack),
			Name:   dbName,
			User:   dbName,
		},
		SSLEnabled: !initNoSSLFlag,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	credentials, err := workspace.GenerateCredentials(stack)
	if err != nil {
		return fmt.Errorf("failed to generate credentials: %w", err)
	}

	if err := ws.Save(project); err != nil {
		return err
	}
	if err := ws.SaveCredentials(credentials); err != nil {
		return err
	}

	// Undo the half-created workspace if anything below fails.
	success := false
	defer func() {
		if !success {
			if rmErr := ws.Remove(); rmErr != nil {
				printVerbose("Warning: failed to clean up workspace: %v", rmErr)
			}
		}
	}()

	run := runner.New()

	fmt.Printf("Cloning backend %s...\n", answers.BackendRepo)
	if err := git.NewManager(ws.BackendDir(), run).Clone(ctx, answers.BackendRepo); err != nil {
		return err
	}

	fmt.Printf("Cloning frontend %s...\n", answers.FrontendRepo)
	if err := git.NewManager(ws.FrontendDir(), run).Clone(ctx, answers.FrontendRepo); err != nil {
		return err
	}

	fmt.Println("Rendering project configuration...")
	if err := templates.Render(project, credentials, ws.Dir()); err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	if project.SSLEnabled {
		issueCertificate(cmd, run, ws.Dir(), project.Domain)
	}

	success = true
	fmt.Printf("\nProject %q initialized (%s).\n", project.Name, project.Stack)
	fmt.Printf("Run 'localdeck deploy' to bring it up at https://%s\n", project.Domain)
	return nil
}

// databasePort returns the container-side port of the stack's database.
func databasePort(stack workspace.Stack) int {
	if stack.DatabaseEngine() == "postgres" {
		return 5432
	}
	return 3306
}

// issueCertificate runs mkcert for the project domain. Best effort: a
// missing mkcert downgrades to a warning, not a failure.
func issueCertificate(cmd *cobra.Command, run runner.Runner, dir, domain string) {
	if !runner.CommandExists("mkcert") {
		fmt.Fprintln(os.Stderr, "Warning: mkcert not found, skipping certificate issuance")
		return
	}

	certsDir := filepath.Join(dir, "certs")
	if err := os.MkdirAll(certsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create certs directory: %v\n", err)
		return
	}

	printVerbose("Issuing certificate for %s...", domain)
	_, err := run.Run(cmd.Context(), runner.Spec{
		Name: "mkcert",
		Args: []string{"-cert-file", domain + ".pem", "-key-file", domain + "-key.pem", domain},
		Dir:  certsDir,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: certificate issuance failed: %v\n", err)
	}
}
