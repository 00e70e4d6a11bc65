package jetstream

import (
	"fmt"
	"regexp"
)

// Pipeline stages. Each stage owns one durable consumer.
const (
	StageRouter    = "router"
	StageCrawler   = "crawler"
	StageIndexer   = "indexer"
	StageAssembler = "assembler"
)

// Well-known topics under the subject prefix.
const (
	TopicObjects        = "objects"
	TopicCrawl          = "crawl"
	TopicGraphChanged   = "graph.changed"
	TopicPagedDocuments = "paged-documents"
	TopicNewBinaries    = "new-binaries"
	TopicDeadLetter     = "dead-letter"
)

var topicRe = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

// Subjects maps topics to NATS subjects under one prefix.
type Subjects struct {
	Prefix string
}

// All is the wildcard subject the stream captures.
func (s Subjects) All() string { return s.Prefix + ".>" }

// Topic maps a caller supplied topic name to a subject. Wildcards and empty
// tokens are rejected.
func (s Subjects) Topic(topic string) (string, error) {
	if !topicRe.MatchString(topic) {
		return "", fmt.Errorf("invalid topic %q", topic)
	}
	return s.Prefix + "." + topic, nil
}

func (s Subjects) must(topic string) string { return s.Prefix + "." + topic }

// Objects carries resource change notifications.
func (s Subjects) Objects() string { return s.must(TopicObjects) }

// Crawl carries crawl requests.
func (s Subjects) Crawl() string { return s.must(TopicCrawl) }

// GraphChanged carries IRIs of graphs the router has rewritten.
func (s Subjects) GraphChanged() string { return s.must(TopicGraphChanged) }

// PagedDocuments carries submission IRIs to assemble.
func (s Subjects) PagedDocuments() string { return s.must(TopicPagedDocuments) }

// DeadLetter carries poison messages of one stage.
func (s Subjects) DeadLetter(stage string) string { return s.must(TopicDeadLetter + "." + stage) }

// ForStage returns the input subject of a stage.
func (s Subjects) ForStage(stage string) (string, error) {
	switch stage {
	case StageRouter:
		return s.Objects(), nil
	case StageCrawler:
		return s.Crawl(), nil
	case StageIndexer:
		return s.GraphChanged(), nil
	case StageAssembler:
		return s.PagedDocuments(), nil
	default:
		return "", fmt.Errorf("unknown stage %q", stage)
	}
}
