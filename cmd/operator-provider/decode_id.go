/*
Copyright 2021 Stefan Prodan

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/isimluk/cfn-kubernetes-operator-provider/pkg/handler"
)

var decodeIDCmd = &cobra.Command{
	Use:     "decode-id [cfnId]",
	Short:   "Decode prints the client request token and the cluster name of a physical resource identifier.",
	Example: `  operator-provider decode-id dG9rZW4tMXxmYWxjb24tY2x1c3Rlcg==`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDecodeIDCmd,
}

func init() {
	rootCmd.AddCommand(decodeIDCmd)
}

func runDecodeIDCmd(cmd *cobra.Command, args []string) error {
	token, clusterName, err := handler.DecodeID(args[0])
	if err != nil {
		return err
	}

	printTable(rootCmd.OutOrStdout(), []string{"client request token", "cluster"}, [][]string{{token, clusterName}})
	return nil
}

func printTable(writer io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
