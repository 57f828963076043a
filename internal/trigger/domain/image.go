package domain

// TaggedImage constructs the image reference pushed to the registry and
// written into the pipeline definition. Pure: the same (name, sha) pair
// always yields the same string.
func TaggedImage(imageName, commitSHA string) string {
	return imageName + ":" + commitSHA
}
