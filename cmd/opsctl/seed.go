package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/wrapshop-ops/api-go/internal/apiclient"
	"github.com/example/wrapshop-ops/api-go/internal/model"
)

type seedPerson struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type seedJob struct {
	Title            string      `yaml:"title"`
	Status           string      `yaml:"status"`
	PipeStage        string      `yaml:"pipe_stage"`
	VehicleDesc      string      `yaml:"vehicle_desc"`
	Material         string      `yaml:"material"`
	Revenue          float64     `yaml:"revenue"`
	DepositReceived  bool        `yaml:"deposit_received"`
	ContractSigned   bool        `yaml:"contract_signed"`
	InstallDate      string      `yaml:"install_date"`
	BidStatus        string      `yaml:"bid_status"`
	Agent            *seedPerson `yaml:"agent"`
	Installer        *seedPerson `yaml:"installer"`
	ProductionPerson *seedPerson `yaml:"production_person"`
}

type seedFile struct {
	Jobs []seedJob `yaml:"jobs"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Create jobs from a YAML fixture file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			fatalf("read %s: %v", args[0], err)
		}
		var fixture seedFile
		if err := yaml.Unmarshal(raw, &fixture); err != nil {
			fatalf("parse %s: %v", args[0], err)
		}
		if len(fixture.Jobs) == 0 {
			fatalf("%s contains no jobs", args[0])
		}

		client := newClient()
		for _, sj := range fixture.Jobs {
			req := apiclient.CreateJob{
				Title:           sj.Title,
				Status:          sj.Status,
				PipeStage:       sj.PipeStage,
				VehicleDesc:     sj.VehicleDesc,
				Material:        sj.Material,
				Revenue:         sj.Revenue,
				DepositReceived: sj.DepositReceived,
				ContractSigned:  sj.ContractSigned,
				InstallDate:     sj.InstallDate,
				BidStatus:       sj.BidStatus,
			}
			if sj.Agent != nil {
				req.Agent = &model.Person{ID: sj.Agent.ID, Name: sj.Agent.Name}
			}
			if sj.Installer != nil {
				req.Installer = &model.Person{ID: sj.Installer.ID, Name: sj.Installer.Name}
			}
			if sj.ProductionPerson != nil {
				req.ProductionPerson = &model.Person{ID: sj.ProductionPerson.ID, Name: sj.ProductionPerson.Name}
			}

			job, err := client.CreateJob(cmd.Context(), req)
			if err != nil {
				fatalf("create %q: %v", sj.Title, err)
			}
			fmt.Printf("Created %s  %s\n", job.ID, job.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
