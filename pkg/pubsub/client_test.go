package pubsub

import "testing"

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{project: "shop-prod", name: "storefront-cart-events", want: "projects/shop-prod/topics/storefront-cart-events"},
		{project: "shop-prod", name: " projects/other/topics/cart ", want: "projects/other/topics/cart"},
		{project: "", name: "storefront-cart-events", want: ""},
		{project: "shop-prod", name: "  ", want: ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("topic") != nil {
		t.Fatalf("expected nil publisher from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil client: %v", err)
	}
}
