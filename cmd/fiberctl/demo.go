package main

import (
	"fmt"
	"time"

	"github.com/brenohof/fiberspace/fiber"
	"github.com/spf13/cobra"
)

// scenario names the six end-to-end cases spec.md §8 describes and
// fiber/scenarios_test.go exercises as package tests. demo runs the same
// code paths interactively and prints their observable output, standing in
// for the original library's "run the demo program and read stdout" story.
type scenario struct {
	name string
	desc string
	run  func(cfg fiber.Config)
}

var scenarios = map[string]scenario{
	"s1": {"s1", "single fiber runs to completion", demoS1},
	"s2": {"s2", "three fibers joined sequentially", demoS2},
	"s3": {"s3", "a fiber's return value propagates through Join", demoS3},
	"s4": {"s4", "one fiber joins another that is still blocked on a third", demoS4},
	"s5": {"s5", "Destroy before Exit fails with ErrNotFinished", demoS5},
	"s6": {"s6", "the ring drains to zero and RunUntilDrain returns", demoS6},
}

func newDemoCommand() *cobra.Command {
	var slice time.Duration

	cmd := &cobra.Command{
		Use:       "demo <s1|s2|s3|s4|s5|s6>",
		Short:     "Run one of the library's end-to-end scheduling scenarios",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"s1", "s2", "s3", "s4", "s5", "s6"},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := scenarios[args[0]]
			if !ok {
				return fmt.Errorf("unknown scenario %q", args[0])
			}
			cfg := fiber.DefaultConfig()
			if slice > 0 {
				cfg.Slice = slice
			}
			fmt.Printf("=== %s: %s ===\n", s.name, s.desc)
			s.run(cfg)
			return nil
		},
	}

	cmd.Flags().DurationVar(&slice, "slice", 0, "override the scheduler's time slice (e.g. 10ms)")
	return cmd
}

func demoS1(cfg fiber.Config) {
	sched := fiber.NewScheduler(cfg)
	sched.Start()
	defer sched.Stop()

	fid, _ := sched.Create(func(fiber.Val) {
		fmt.Println("fiber: A")
		for i := 0; i < 5; i++ {
			sched.Checkpoint()
		}
		fmt.Println("fiber: B")
	}, nil)

	if _, err := sched.Join(fid); err != nil {
		fmt.Println("join error:", err)
	}
}

func demoS2(cfg fiber.Config) {
	sched := fiber.NewScheduler(cfg)
	sched.Start()
	defer sched.Stop()

	for _, tag := range []string{"f1", "f2", "f3"} {
		tag := tag
		fid, _ := sched.Create(func(fiber.Val) {
			fmt.Printf("%s: start\n", tag)
			sched.Checkpoint()
			fmt.Printf("%s: end\n", tag)
		}, nil)
		if _, err := sched.Join(fid); err != nil {
			fmt.Println("join error:", err)
		}
	}
}

func demoS3(cfg fiber.Config) {
	sched := fiber.NewScheduler(cfg)
	sched.Start()
	defer sched.Stop()

	fid, _ := sched.Create(func(v fiber.Val) {
		sched.Exit(v.(int) * 2)
	}, 21)

	got, err := sched.Join(fid)
	if err != nil {
		fmt.Println("join error:", err)
		return
	}
	fmt.Printf("join returned: %v\n", got)
}

func demoS4(cfg fiber.Config) {
	sched := fiber.NewScheduler(cfg)
	sched.Start()
	defer sched.Stop()

	f1, _ := sched.Create(func(fiber.Val) {
		fmt.Println("f1: start")
		for i := 0; i < 3; i++ {
			sched.Checkpoint()
		}
		fmt.Println("f1: end")
		sched.Exit(10)
	}, nil)

	f2, _ := sched.Create(func(fiber.Val) {
		fmt.Println("f2: start, joining f1")
		v, err := sched.Join(f1)
		if err != nil {
			fmt.Println("f2: join error:", err)
			return
		}
		fmt.Println("f2: resumed after f1")
		sched.Exit(v.(int) * 2)
	}, nil)

	got, err := sched.Join(f2)
	if err != nil {
		fmt.Println("join error:", err)
		return
	}
	fmt.Printf("join(f2) returned: %v\n", got)
}

func demoS5(cfg fiber.Config) {
	sched := fiber.NewScheduler(cfg)
	sched.Start()
	defer sched.Stop()

	fid, _ := sched.Create(func(fiber.Val) {
		fmt.Println("fiber: running")
	}, nil)

	if err := sched.Destroy(fid); err != nil {
		fmt.Println("destroy before finish:", err)
	}

	if _, err := sched.Join(fid); err != nil {
		fmt.Println("join error:", err)
	}
}

func demoS6(cfg fiber.Config) {
	sched := fiber.NewScheduler(cfg)
	sched.Start()

	done := make(chan struct{})
	go func() {
		fid, _ := sched.Create(func(fiber.Val) {
			fmt.Println("fiber: running")
		}, nil)
		if _, err := sched.Join(fid); err != nil {
			fmt.Println("join error:", err)
		}
		sched.Exit(nil)
	}()

	go func() {
		sched.RunUntilDrain()
		close(done)
	}()

	select {
	case <-done:
		fmt.Printf("ring drained, FiberCount=%d\n", sched.FiberCount())
	case <-time.After(2 * time.Second):
		fmt.Println("timed out waiting for drain")
	}
}
