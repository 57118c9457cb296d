package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/qbridge/qbridge/pkg/format"
)

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	var (
		target  string
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "convert [program file]",
		Short: "Convert a quantum program to a target format",
		Long: `Convert a quantum program to a target format.

The program is read from the given file (or stdin when the argument is "-"),
its source format is detected, and the conversion graph routes it to the
target format. When no direct converter exists, multi-step paths are
attempted in ascending hop-count order, with an automatic flatten fallback
when an individual step fails.

Example:

  qbridge convert bell.qasm --to qasm3
  cat bell.qasm | qbridge convert - --to qasm3 -o bell3.qasm`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				return fmt.Errorf("--to is required")
			}
			return c.runConvert(cmd.Context(), args[0], format.Format(target), output, noCache)
		},
	}

	cmd.Flags().StringVar(&target, "to", "", "target format (e.g. qasm3)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// runConvert reads the program, converts it, and writes the result.
func (c *CLI) runConvert(ctx context.Context, input string, target format.Format, output string, noCache bool) error {
	source, err := readProgram(input)
	if err != nil {
		return fmt.Errorf("read program %s: %w", input, err)
	}

	t, _, err := c.newTranspiler(noCache)
	if err != nil {
		return fmt.Errorf("initialize transpiler: %w", err)
	}
	defer t.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Converting to %s...", target))
	spinner.Start()
	start := time.Now()

	result, err := t.Transpile(ctx, source, target)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("Conversion failed: %v", err))
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Converted to %s in %s", StyleHighlight.Render(string(target)), time.Since(start).Round(time.Millisecond)))

	text, ok := result.(string)
	if !ok {
		return fmt.Errorf("converted program is %T, cannot write as text", result)
	}

	if output == "" {
		fmt.Println(text)
		return nil
	}
	if err := os.WriteFile(output, []byte(text), 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printFile(output)
	return nil
}

// readProgram reads a program from a file, or stdin for "-".
func readProgram(input string) (string, error) {
	if input == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(input)
	return string(data), err
}
