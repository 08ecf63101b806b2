package client_test

import (
	"context"
	"fmt"
	"log"

	"github.com/clientflow/alertrunner/pkg/client"
)

// Example demonstrates basic usage of the alertrunner client
func Example() {
	c := client.NewClient(client.Config{
		BaseURL: "https://alerts.example.com",
		Token:   "<admin token>",
	})

	ctx := context.Background()

	seeded, err := c.Rules().Seed(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Seeded %d rules (%d already existed)\n", seeded.Created, seeded.Existed)

	rules, err := c.Rules().List(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range rules {
		fmt.Printf("%s: %d sent in the last 24h\n", r.Name, r.RecentStats.Sent)
	}
}

// ExampleClient_TriggerEvent demonstrates submitting a billing event
func ExampleClient_TriggerEvent() {
	c := client.NewClient(client.Config{
		BaseURL: "https://alerts.example.com",
		Token:   "<cron token>",
	})

	result, err := c.TriggerEvent(context.Background(), client.Event{
		EventType:        "payment_failed",
		StripeCustomerID: "cus_123",
		Metadata:         map[string]interface{}{"amount": "49.00"},
	})
	if apiErr, ok := err.(*client.APIError); ok && apiErr.IsNotFound() {
		fmt.Println("No tenant for that customer")
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	for _, o := range result.Results {
		fmt.Printf("%s: %s\n", o.RuleName, o.Status)
	}
}

// ExampleAlertService_List demonstrates reading a tenant's unread alerts
func ExampleAlertService_List() {
	c := client.NewClient(client.Config{
		BaseURL: "https://alerts.example.com",
		Token:   "<tenant token>",
	})

	page, err := c.Alerts().List(context.Background(), "tenant-id", &client.AlertListOptions{
		ListOptions: client.ListOptions{Page: 1, PageSize: 20},
		Unread:      true,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%d unread alerts\n", page.TotalItems)
}
