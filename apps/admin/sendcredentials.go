package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) sendCredentials() error {
	sent, err := cli.usrSvc.SendCredentials(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("credentials queued for %d student(s)\n", sent)
	return nil
}
