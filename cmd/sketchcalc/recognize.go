package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sketchcalc/internal/app"
	"sketchcalc/internal/recognize"
)

var (
	recognizeBackend string
	recognizeVars    map[string]string
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image.png>",
	Short: "Send an image to the recognition backend and print the results",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecognize,
}

func init() {
	recognizeCmd.Flags().StringVar(&recognizeBackend, "backend", "", "recognition backend (overrides recognition.backend)")
	recognizeCmd.Flags().StringToStringVar(&recognizeVars, "var", nil, "known variable, name=value (repeatable)")
	rootCmd.AddCommand(recognizeCmd)
}

func runRecognize(cmd *cobra.Command, args []string) error {
	rt, err := load()
	if err != nil {
		return err
	}
	if recognizeBackend != "" {
		rt.cfg.Recognition.Backend = recognizeBackend
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	rec, closeRec, err := app.NewRecognizer(rt.cfg.Recognition, rt.logger)
	if err != nil {
		return err
	}
	defer closeRec()
	if rec == nil {
		return fmt.Errorf("recognition backend is %q", rt.cfg.Recognition.Backend)
	}

	ctx := context.Background()
	if d := rt.cfg.Recognition.Timeout.Duration; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	results, err := rec.Recognize(ctx, recognize.Request{
		Image: recognize.EncodeDataURL("image/png", data),
		Vars:  recognize.Vars(recognizeVars),
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No expressions recognized")
		return nil
	}
	for _, r := range results {
		if r.Assign {
			fmt.Printf("%s := %s\n", r.Expr, r.Result)
			continue
		}
		fmt.Printf("%s = %s\n", r.Expr, r.Result)
	}
	return nil
}
