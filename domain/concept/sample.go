package concept

// SampleDataset returns the bundled dataset used when no seed file is configured.
func SampleDataset() Dataset {
	c := func(name, desc string, created, updated int, tags ...string) ConceptSpec {
		return ConceptSpec{Name: name, Description: desc, Tags: tags, CreatedDaysAgo: created, UpdatedDaysAgo: updated}
	}
	r := func(from, to string, typ RelationType, weight float64, created int) RelationshipSpec {
		return RelationshipSpec{From: from, To: to, Type: typ, Weight: weight, CreatedDaysAgo: created}
	}

	return Dataset{
		Concepts: []ConceptSpec{
			c("artificial intelligence", "Systems that perform tasks requiring human intelligence", 88, 10, "ai", "computing"),
			c("machine learning", "Algorithms that learn patterns from data", 85, 4, "ai", "learning", "statistics"),
			c("deep learning", "Machine learning with multi-layer neural networks", 80, 3, "ai", "learning", "neural"),
			c("neural networks", "Layered models of weighted connections", 78, 12, "ai", "neural"),
			c("reinforcement learning", "Learning behaviour from reward signals", 60, 9, "ai", "learning", "agents"),
			c("supervised learning", "Learning from labelled examples", 70, 20, "learning", "statistics"),
			c("unsupervised learning", "Finding structure in unlabelled data", 69, 25, "learning", "statistics"),
			c("natural language processing", "Computational understanding of human language", 65, 2, "ai", "language"),
			c("computer vision", "Extracting information from images and video", 64, 6, "ai", "vision"),
			c("transformers", "Attention based sequence models", 40, 1, "neural", "language"),
			c("large language models", "Transformers trained on web scale text", 30, 1, "ai", "language", "neural"),
			c("convolutional neural networks", "Neural networks with shared spatial filters", 58, 15, "neural", "vision"),
			c("data science", "Extracting insight from data", 90, 30, "data", "statistics"),
			c("statistics", "Mathematics of data collection and inference", 90, 45, "mathematics", "statistics"),
			c("linear algebra", "Vector spaces and linear maps", 89, 60, "mathematics"),
			c("data mining", "Discovering patterns in large datasets", 75, 22, "data", "learning"),
			c("big data", "Datasets too large for traditional processing", 72, 28, "data", "computing"),
			c("data visualization", "Graphical representation of data", 50, 18, "data"),
			c("clustering", "Grouping similar items without labels", 55, 7, "learning", "statistics"),
			c("classification", "Assigning items to predefined categories", 54, 8, "learning", "statistics"),
			c("quantum computing", "Computation using quantum mechanical phenomena", 20, 2, "quantum", "computing"),
			c("quantum machine learning", "Machine learning on quantum hardware", 12, 1, "quantum", "ai", "learning"),
			c("qubits", "Two level quantum systems storing information", 19, 5, "quantum"),
			c("cryptography", "Secure communication techniques", 45, 14, "security", "mathematics"),
		},
		Relationships: []RelationshipSpec{
			r("machine learning", "artificial intelligence", PartOf, 0.95, 85),
			r("deep learning", "machine learning", IsA, 0.92, 80),
			r("deep learning", "neural networks", RelatedTo, 0.9, 78),
			r("reinforcement learning", "machine learning", IsA, 0.85, 60),
			r("supervised learning", "machine learning", IsA, 0.88, 70),
			r("unsupervised learning", "machine learning", IsA, 0.86, 69),
			r("clustering", "unsupervised learning", PartOf, 0.9, 55),
			r("classification", "supervised learning", PartOf, 0.9, 54),
			r("natural language processing", "artificial intelligence", PartOf, 0.8, 65),
			r("computer vision", "artificial intelligence", PartOf, 0.8, 64),
			r("transformers", "natural language processing", UsedIn, 0.88, 40),
			r("transformers", "deep learning", IsA, 0.8, 40),
			r("large language models", "transformers", IsA, 0.93, 30),
			r("large language models", "natural language processing", UsedIn, 0.9, 28),
			r("convolutional neural networks", "computer vision", UsedIn, 0.9, 58),
			r("convolutional neural networks", "neural networks", IsA, 0.87, 58),
			r("data science", "statistics", RelatedTo, 0.85, 88),
			r("data science", "machine learning", RelatedTo, 0.82, 84),
			r("data mining", "data science", PartOf, 0.8, 75),
			r("data mining", "clustering", RelatedTo, 0.7, 50),
			r("big data", "data science", RelatedTo, 0.7, 72),
			r("data visualization", "data science", PartOf, 0.75, 50),
			r("statistics", "machine learning", Enables, 0.8, 80),
			r("linear algebra", "machine learning", Enables, 0.78, 82),
			r("linear algebra", "neural networks", Enables, 0.7, 77),
			r("linear algebra", "quantum computing", Enables, 0.65, 20),
			r("qubits", "quantum computing", PartOf, 0.95, 19),
			r("quantum machine learning", "quantum computing", UsedIn, 0.85, 12),
			r("quantum machine learning", "machine learning", IsA, 0.75, 11),
			r("cryptography", "quantum computing", RelatedTo, 0.6, 15),
			r("cryptography", "linear algebra", RelatedTo, 0.4, 44),
			r("reinforcement learning", "neural networks", RelatedTo, 0.6, 30),
			r("computer vision", "deep learning", RelatedTo, 0.75, 45),
			r("big data", "data mining", Enables, 0.72, 10),
			r("classification", "neural networks", RelatedTo, 0.55, 5),
		},
	}
}
