package commands

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/arlenn/secvault/internal/vault"
)

// GetVault lazily opens the vault; commands share one instance per
// invocation.
type GetVault func() (*vault.Vault, error)

var (
	labelColor = color.New(color.Bold)
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
)

func printField(name, value string) {
	fmt.Printf("%s %s\n", labelColor.Sprintf("%s:", name), value)
}

func printOK(format string, args ...any) {
	okColor.Printf(format+"\n", args...)
}

func printWarn(format string, args ...any) {
	warnColor.Printf(format+"\n", args...)
}
