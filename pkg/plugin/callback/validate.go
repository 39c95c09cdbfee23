package callback

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/obscura-sec/warden/pkg/plugin"
	"github.com/obscura-sec/warden/pkg/types"
)

func init() {
	plugin.Callbacks.Register(NewValidate())
}

// validateTimeout bounds the live network call so one bad credential
// never stalls a worker indefinitely.
const validateTimeout = 5 * time.Second

var (
	awsSecretPattern     = regexp.MustCompile(`[A-Za-z0-9/+=]{40}`)
	azureAccountKeyRegex = regexp.MustCompile(`[A-Za-z0-9+/]{80,}={0,2}`)
)

// Validate attempts a live credential check when a match's rule tags name
// a cloud-credential category, adapted from the teacher's
// pkg/validator/aws.go and pkg/validator/azure.go. Those validators took
// capture groups from a regex engine; here the groups are replaced by the
// set of string literals YARA matched for the rule, since every credential
// rule declares an identifier string ($access_key, $secret, ...) whose
// Reference names the piece it captured.
type Validate struct{}

// NewValidate returns the validate callback.
func NewValidate() *Validate { return &Validate{} }

func (v *Validate) Name() string          { return "validate" }
func (v *Validate) SupportedOS() []string { return []string{"linux", "darwin", "windows"} }

func (v *Validate) Run(record *types.MatchRecord) {
	tags := record.Match.Tags
	switch {
	case hasTag(tags, "aws"):
		v.validateAWS(record)
	case hasTag(tags, "azure"):
		v.validateAzure(record)
	}
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func (v *Validate) validateAWS(record *types.MatchRecord) {
	keyID, secret, ok := extractAWSCredential(record.Match.Strings)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(keyID, secret, "")),
		awsconfig.WithRegion("us-east-1"),
	)
	if err != nil {
		annotate(record, "aws_validation", fmt.Sprintf("config error: %v", err))
		return
	}

	client := sts.NewFromConfig(cfg)
	identity, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		annotate(record, "aws_validation", "credentials rejected")
		return
	}

	annotate(record, "aws_validation", fmt.Sprintf("valid, account %s arn %s",
		aws.ToString(identity.Account), aws.ToString(identity.Arn)))
}

func (v *Validate) validateAzure(record *types.MatchRecord) {
	accountName, accountKey, ok := extractAzureCredential(record.Match.Strings)
	if !ok {
		return
	}

	connStr := fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
		accountName, accountKey)

	client, err := azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		annotate(record, "azure_validation", fmt.Sprintf("client error: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	pager := client.NewListContainersPager(nil)
	if _, err := pager.NextPage(ctx); err != nil {
		if isAzureAuthError(err) {
			annotate(record, "azure_validation", "credentials rejected")
			return
		}
		annotate(record, "azure_validation", fmt.Sprintf("undetermined: %v", err))
		return
	}

	annotate(record, "azure_validation", fmt.Sprintf("valid, account %s", accountName))
}

// extractAWSCredential looks for one string tagged as an access key and
// derives the paired secret from the remaining literals, mirroring
// np.aws.6's two-capture-group shape.
func extractAWSCredential(strs []types.MatchString) (keyID, secret string, ok bool) {
	for _, s := range strs {
		if strings.Contains(strings.ToLower(s.Reference), "access_key") || strings.HasPrefix(s.Literal, "AKIA") {
			keyID = s.Literal
		}
	}
	if keyID == "" {
		return "", "", false
	}
	for _, s := range strs {
		if m := awsSecretPattern.FindString(s.Literal); m != "" && m != keyID {
			secret = m
			break
		}
	}
	return keyID, secret, secret != ""
}

func extractAzureCredential(strs []types.MatchString) (accountName, accountKey string, ok bool) {
	for _, s := range strs {
		ref := strings.ToLower(s.Reference)
		switch {
		case strings.Contains(ref, "account_name"):
			accountName = s.Literal
		case strings.Contains(ref, "account_key"):
			accountKey = s.Literal
		}
	}
	if accountKey == "" {
		for _, s := range strs {
			if m := azureAccountKeyRegex.FindString(s.Literal); m != "" {
				accountKey = m
				break
			}
		}
	}
	if len(accountKey)%4 != 0 {
		accountKey += strings.Repeat("=", 4-len(accountKey)%4)
	}
	return accountName, accountKey, accountName != "" && accountKey != ""
}

func isAzureAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "AuthenticationFailed") ||
		strings.Contains(msg, "AuthorizationFailure") ||
		strings.Contains(msg, "InvalidAuthenticationInfo")
}

// annotate records a validation outcome directly on the match's metadata
// map so it flows through to the output file alongside the rest of the
// record, since the core's MatchRecord has no separate validation field.
func annotate(record *types.MatchRecord, key, value string) {
	if record.Match.Meta == nil {
		record.Match.Meta = make(map[string]string)
	}
	record.Match.Meta[key] = value
}
