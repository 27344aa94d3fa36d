package openai

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/toolagent/core"
)

// DefaultAzureAPIVersion is used when no API version is configured.
const DefaultAzureAPIVersion = "2024-10-21"

// AzureOptions select the Azure OpenAI deployment and its authentication.
type AzureOptions struct {
	Endpoint   string
	APIVersion string
	// APIKey authenticates with a resource key. When empty, Credential (or
	// DefaultAzureCredential if Credential is nil) issues Entra ID tokens.
	APIKey     string
	Credential azcore.TokenCredential
}

// NewAzureModel creates a model backed by an Azure OpenAI deployment. The
// deployment name goes into Options.Model.
func NewAzureModel(az AzureOptions, optFns ...func(o *Options)) (*Model, error) {
	if az.Endpoint == "" {
		return nil, &core.ConfigurationError{Field: "endpoint", Message: "azure endpoint is required"}
	}
	if az.APIVersion == "" {
		az.APIVersion = DefaultAzureAPIVersion
	}

	reqOpts := []option.RequestOption{azure.WithEndpoint(az.Endpoint, az.APIVersion)}

	switch {
	case az.APIKey != "":
		reqOpts = append(reqOpts, azure.WithAPIKey(az.APIKey))
	case az.Credential != nil:
		reqOpts = append(reqOpts, azure.WithTokenCredential(az.Credential))
	default:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: azure credential: %w", core.ErrConfiguration, err)
		}
		reqOpts = append(reqOpts, azure.WithTokenCredential(cred))
	}

	client := openai.NewClient(reqOpts...)
	return NewModelFromClient(&client, optFns...), nil
}
