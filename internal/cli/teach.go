package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/while-basic/Ollama-AI-Simulator/internal/engine"
	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
)

var (
	teachStimulus string
	teachResponse string
	teachReward   float64
	teachEmotion  string
	teachTick     int64
)

var teachCmd = &cobra.Command{
	Use:   "teach",
	Short: "Observe one scored stimulus/response interaction",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		e, j, closeAll, err := loadEngine(ctx)
		if err != nil {
			exitErr("load engine", err)
		}
		defer closeAll()

		tag := model.TagNone
		if teachEmotion != "" {
			tag, err = model.ParseEmotionalTag(teachEmotion)
			if err != nil {
				exitErr("parse emotion", err)
			}
		}
		tick := teachTick
		if tick < 0 {
			tick = e.Clock()
		}

		// Persist the events this new interaction emits; replayed
		// history was already recorded on earlier invocations.
		e.Subscribe(func(event any) {
			switch ev := event.(type) {
			case model.MilestoneEvent:
				j.RecordMilestone(ctx, ev)
			case model.StageTransitionEvent:
				j.RecordTransition(ctx, ev)
			}
		})

		in := engine.Interaction{
			Stimulus: teachStimulus,
			Response: teachResponse,
			Reward:   teachReward,
			Tag:      tag,
			Tick:     tick,
		}
		res, err := e.Observe(in)
		if err != nil {
			exitErr("observe", err)
		}
		if err := j.AppendInteraction(ctx, in); err != nil {
			exitErr("journal", err)
		}
		output(res)
	},
}

func init() {
	teachCmd.Flags().StringVarP(&teachStimulus, "stimulus", "s", "", "Lesson prompt text")
	teachCmd.Flags().StringVarP(&teachResponse, "response", "r", "", "Learner response text")
	teachCmd.Flags().Float64Var(&teachReward, "reward", 0.5, "Evaluation reward in [0, 1]")
	teachCmd.Flags().StringVarP(&teachEmotion, "emotion", "e", "", "Emotional tag: pride, confusion, shame, joy, curiosity")
	teachCmd.Flags().Int64Var(&teachTick, "tick", -1, "Simulation tick (default: current clock)")
	teachCmd.MarkFlagRequired("stimulus")
	teachCmd.MarkFlagRequired("response")
	RootCmd.AddCommand(teachCmd)
}
