package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arlobrennan/chip8x/internal/chip8"
	"github.com/arlobrennan/chip8x/internal/controller"
	ebitenhost "github.com/arlobrennan/chip8x/internal/host/ebiten"
)

var (
	backendFlag string
	fgColorHex  string
	bgColorHex  string
	cycles      int
)

var runCmd = &cobra.Command{
	Use:   "run path/to/rom",
	Short: "run a ROM with the chip8x emulator",
	Args:  cobra.ExactArgs(1),
	Run:   runChip8x,
}

func init() {
	runCmd.Flags().StringVar(&backendFlag, "backend", "interpreter",
		"execution backend: interpreter, cached1, cached2, cached3, or jit")
	runCmd.Flags().StringVar(&fgColorHex, "fg", "FFFFFFFF", "rgba foreground color in hex")
	runCmd.Flags().StringVar(&bgColorHex, "bg", "000000FF", "rgba background color in hex")
	runCmd.Flags().IntVar(&cycles, "cycles-per-frame", controller.DefaultCyclesPerFrame,
		"guest instructions executed per 60Hz frame")
}

func runChip8x(cmd *cobra.Command, args []string) {
	romPath := args[0]

	kind, err := parseBackendKind(backendFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rom, err := chip8.LoadROMFile(romPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}

	fgColor, err := ebitenhost.DecodeColorFromHex(fgColorHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode fg color: %s\n", err)
		os.Exit(1)
	}
	bgColor, err := ebitenhost.DecodeColorFromHex(bgColorHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode bg color: %s\n", err)
		os.Exit(1)
	}

	m := chip8.NewMachine()
	if err := m.LoadROM(rom.Data); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}

	game, err := ebitenhost.New(ebitenhost.Config{
		FgColor: fgColor,
		BgColor: bgColor,
		ROMName: rom.Name,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create host: %s\n", err)
		os.Exit(1)
	}

	ctrl := controller.New(m, game.HostIO())
	ctrl.CyclesPerFrame = cycles
	if err := ctrl.SelectBackend(kind); err != nil {
		fmt.Fprintf(os.Stderr, "select backend %s: %s\n", backendFlag, err)
		os.Exit(1)
	}
	game.BindController(ctrl)
	defer ctrl.Shutdown()

	if err := game.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func parseBackendKind(s string) (controller.BackendKind, error) {
	switch s {
	case "interpreter":
		return controller.BackendInterpreter, nil
	case "cached1":
		return controller.BackendCachedTier1, nil
	case "cached2":
		return controller.BackendCachedTier2, nil
	case "cached3":
		return controller.BackendCachedTier3, nil
	case "jit":
		return controller.BackendJIT, nil
	default:
		return 0, fmt.Errorf("unknown --backend %q (want interpreter, cached1, cached2, cached3, or jit)", s)
	}
}

// exitCodeFor maps the error taxonomy (spec.md §6/§7) to a process
// exit code. Every recognized sentinel gets its own code so a calling
// script can tell them apart; anything else is a generic failure.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, chip8.ErrInvalidOpcode):
		return 2
	case errors.Is(err, chip8.ErrStackOverflow):
		return 3
	case errors.Is(err, chip8.ErrStackUnderflow):
		return 4
	case errors.Is(err, chip8.ErrOutOfMemoryForJIT):
		return 5
	case errors.Is(err, chip8.ErrRomTooLarge):
		return 6
	default:
		return 1
	}
}
