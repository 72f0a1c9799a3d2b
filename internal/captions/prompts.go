package captions

import (
	"fmt"
	"strings"
)

func CaptionPrompt(tone Tone, subject string, platform Platform, length Length) string {
	return fmt.Sprintf(
		"Generate a %s caption based on the following image description: '%s', for the %s platform. The caption should be %s in length.",
		tone, subject, platform, length,
	)
}

func HashtagPrompt(caption string) string {
	return fmt.Sprintf("Generate a list of relevant hashtags for the following caption. Only provide the hashtags: '%s'.", caption)
}

func TipsPrompt(platform Platform, caption string) string {
	return fmt.Sprintf("Provide just a list of tips only on how to improve this caption for %s: '%s'. Only provide the tips.", platform, caption)
}

func DescribePrompt(description string) string {
	return fmt.Sprintf("Describe the image the user wrote about below in one or two plain sentences, as input for a social media caption. Only provide the description: '%s'.", description)
}

// JoinLabels keeps provider order.
func JoinLabels(labels []string) string {
	return strings.Join(labels, ", ")
}

// ParseHashtags splits on a single space with no further normalization.
func ParseHashtags(text string) []string {
	if text == "" {
		return []string{}
	}
	return strings.Split(text, " ")
}

// ParseTips splits on ". "; the last fragment keeps its terminal period.
func ParseTips(text string) []string {
	if text == "" {
		return []string{}
	}
	return strings.Split(text, ". ")
}
