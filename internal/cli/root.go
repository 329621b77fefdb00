package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "scan":
		return runScan(args[1:])
	case "run":
		return runTranscode(args[1:])
	case "status":
		return runStatus(args[1:])
	case "locks":
		return runLocks(args[1:])
	case "review":
		return runReview(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "init":
		return runInit(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "version":
		return runVersion(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("jellyshrink: batch re-encoder for oversized Jellyfin libraries")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  jellyshrink init")
	fmt.Println("  jellyshrink scan --server <url> --user <id>")
	fmt.Println("  jellyshrink run")
	fmt.Println("  jellyshrink status")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init      create workspace config + run environment checks")
	fmt.Println("  doctor    run dependency and filesystem preflight checks")
	fmt.Println("  scan      inventory the Jellyfin library and write the job list")
	fmt.Println("  run       re-encode listed files with a worker pool")
	fmt.Println("  status    queue, failure log, and report rollup")
	fmt.Println("  locks     list or clear held claim markers")
	fmt.Println("  review    interactive queue and failure browser")
	fmt.Println("  settings  show/update persisted defaults")
	fmt.Println("  version   print the build version")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - Several `run` invocations may share one list; each file is")
	fmt.Println("    claimed exactly once through its marker")
}
