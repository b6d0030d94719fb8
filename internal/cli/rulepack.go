package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gzhole/schnabel/internal/config"
	"github.com/gzhole/schnabel/internal/rulepack"
)

var rulepackCmd = &cobra.Command{
	Use:   "rulepack",
	Short: "Inspect the compiled rule pack",
	Long: `Inspect the rule pack schnabel loads for the rule_pack detect scanner.

The base pack is rulePackPath in config.yaml; additional packs in packsDir
are merged in afterward. A file prefixed with "_" in packsDir is disabled
and skipped during the merge.`,
}

var rulepackValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Compile a single rule pack file and report errors",
	Args:  cobra.ExactArgs(1),
	RunE:  rulepackValidate,
}

var rulepackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the rules in the configured base pack and packs directory",
	RunE:  rulepackList,
}

func init() {
	rulepackCmd.AddCommand(rulepackValidateCmd)
	rulepackCmd.AddCommand(rulepackListCmd)
	rootCmd.AddCommand(rulepackCmd)
}

func rulepackValidate(cmd *cobra.Command, args []string) error {
	pack, err := rulepack.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("OK: %d rules compiled (version %s)\n", len(pack.Rules), pack.Version)
	return nil
}

func rulepackList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pack, err := loadConfiguredPack(cfg)
	if err != nil {
		return err
	}

	if len(pack.Rules) == 0 {
		fmt.Println("No rules loaded.")
		fmt.Printf("Base pack: %s\nPacks dir: %s\n", cfg.RulePackPath, cfg.PacksDir)
		return nil
	}

	fmt.Printf("Rule pack version: %s\n", pack.Version)
	fmt.Println(strings.Repeat("─", 60))
	for _, rule := range pack.Rules {
		fmt.Printf("  %-30s %-10s %s\n", rule.ID, rule.Risk, rule.Category)
	}
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("%d rules total\n", len(pack.Rules))
	return nil
}
