package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vonfeng/AgentMove-Public/internal/logger"
	"github.com/vonfeng/AgentMove-Public/internal/overlay"
	"github.com/vonfeng/AgentMove-Public/internal/session"
)

func newPredictCmd() *cobra.Command {
	var (
		city, userID, trajID        string
		model, platform, promptType string
		overlayOut                  string
		useExample                  bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Load a trajectory, run a prediction, and write the overlay map",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zl, client, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync(zl)

			if city == "" {
				city = cfg.Demo.City
			}
			if model == "" {
				model = cfg.Demo.Model
			}
			if platform == "" {
				platform = cfg.Demo.Platform
			}
			if promptType == "" {
				promptType = cfg.Demo.PromptType
			}
			if overlayOut == "" {
				overlayOut = cfg.Demo.OverlayOut
			}

			backend := overlay.NewEChartsBackend(overlayOut, "AgentMove Demo: "+city)
			sess := session.New(client, overlay.NewSynchronizer(backend, zl),
				session.WithCity(city),
				session.WithLogger(zl),
				session.WithNotifier(func(msg string) {
					fmt.Fprintln(os.Stderr, "! "+msg)
				}),
			)

			ctx := context.Background()
			var err2 error
			switch {
			case useExample:
				err2 = sess.LoadExample(ctx)
			case userID != "" && trajID != "":
				err2 = sess.Load(ctx, userID, trajID)
			default:
				err2 = sess.LoadRandom(ctx)
			}
			if err2 != nil {
				return err2
			}

			traj, _ := sess.Trajectory()
			fmt.Printf("Loaded trajectory %s/%s: %d points, %.1f km span\n",
				traj.UserID, traj.TrajID, traj.Len(), traj.Span()/1000)

			if !useExample {
				if _, err := sess.Predict(ctx, model, platform, promptType); err != nil {
					return err
				}
			}

			d, ok := sess.Result()
			if !ok {
				return fmt.Errorf("no prediction result to show")
			}
			fmt.Printf("Verdict:   %s\n", d.Verdict)
			fmt.Printf("Predicted: %s\n", d.PredictedVenue)
			fmt.Printf("Actual:    %s\n", d.ActualVenue)
			fmt.Printf("Reasoning: %s\n", d.Explanation)
			fmt.Printf("Memory:        %s\n", d.Modules.Memory)
			fmt.Printf("Spatial world: %s\n", d.Modules.SpatialWorld)
			fmt.Printf("Social world:  %s\n", d.Modules.SocialWorld)

			if err := backend.WriteHTML(); err != nil {
				return err
			}
			fmt.Printf("Overlay written to %s\n", overlayOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&city, "city", "", "city to load from")
	cmd.Flags().StringVar(&userID, "user", "", "user id (random pick when empty)")
	cmd.Flags().StringVar(&trajID, "traj", "", "trajectory id (random pick when empty)")
	cmd.Flags().StringVar(&model, "model", "", "model name")
	cmd.Flags().StringVar(&platform, "platform", "", "LLM platform")
	cmd.Flags().StringVar(&promptType, "prompt", "", "prompt type")
	cmd.Flags().StringVar(&overlayOut, "overlay", "", "overlay HTML output path")
	cmd.Flags().BoolVar(&useExample, "example", false, "show the canned example instead of a live prediction")
	return cmd
}
