package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/pase-tools/xcoffscan/internal/report"
	"github.com/pase-tools/xcoffscan/internal/xcoff"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Show the header summary of an XCOFF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vs := validateAll(args)
			if err := a.emit(func(f report.Formatter, w io.Writer) error {
				return f.Validations(w, vs)
			}); err != nil {
				return err
			}
			if !vs[0].Result.Valid {
				return errFailed
			}
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check whether files are valid XCOFF objects or archives",
		Long: `Check each file's header. Every file is reported; the command exits 1
if any of them is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vs := validateAll(args)
			if err := a.emit(func(f report.Formatter, w io.Writer) error {
				return f.ValidationSummary(w, vs)
			}); err != nil {
				return err
			}

			for _, v := range vs {
				if !v.Result.Valid {
					return errFailed
				}
			}
			return nil
		},
	}
}

func validateAll(files []string) []report.Validation {
	vs := make([]report.Validation, 0, len(files))
	for _, file := range files {
		vs = append(vs, report.Validation{FilePath: file, Result: xcoff.Validate(file)})
	}
	return vs
}
