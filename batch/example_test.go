package batch_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/assetmigrate/attachment"
	"github.com/jonwraymond/assetmigrate/batch"
	"github.com/jonwraymond/assetmigrate/provider"
	"github.com/jonwraymond/assetmigrate/resilience"
)

func ExampleProcessor_ProcessAttachments() {
	ctx := context.Background()
	store := attachment.NewMemoryStore()
	_ = store.Save(ctx, "acme", &attachment.Attachment{ID: "steps.txt", ContentType: "text/plain", Payload: []byte("open\r\nlogin\r\n")})
	_ = store.Save(ctx, "acme", &attachment.Attachment{ID: "logo.png", ContentType: "image/png", Payload: []byte{0x89, 'P', 'N', 'G'}})

	opts := batch.DefaultOptions()
	opts.FilterByContentType = []string{"text/*"}

	p := batch.NewProcessor(resilience.NewRegistry(resilience.DefaultPolicyConfig()), attachment.DefaultConverter{})
	res, err := p.ProcessAttachments(ctx, "acme", []string{"steps.txt", "logo.png"},
		batch.ProcessingOptions{SourceProvider: provider.Zephyr, TargetProvider: provider.QTest}, opts, store)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res.Status, res.Processed, res.Failed, res.Excluded)

	converted, _ := store.Get(ctx, "acme", "steps.txt")
	fmt.Printf("%q %s\n", converted.Payload, converted.Provider)
	// Output:
	// completed 1 0 [logo.png]
	// "open\nlogin\n" qtest
}
