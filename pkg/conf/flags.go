package conf

// AWSRegion represents the AWS region flag. When empty, the SDK default
// resolution chain (environment, shared config, instance metadata) is used.
var AWSRegion = NewStringFlag("region", "AWS region for Lambda, CloudFormation and DynamoDB clients", "")
