package store

import (
	"context"

	"github.com/freadom/readrec/core"
)

// SeedCatalog 返回演示目录：10 条内容样本。
// 每次调用返回独立副本，调用方可随意修改。
func SeedCatalog() []*core.Content {
	return []*core.Content{
		{
			ID:           1,
			Title:        "The Magic Tree",
			Text:         "Once upon a time, there was a magical tree that could grow any fruit you wished for. A young girl named Lily discovered the tree in her backyard. Every day she would ask for a different fruit, and the tree would provide it. One day, she asked for a golden apple, and to her surprise, the tree produced it. The golden apple had magical powers that allowed Lily to talk to animals.",
			Author:       "Jane Smith",
			Genre:        "Fantasy",
			Topics:       []string{"magic", "nature", "adventure"},
			ReadingLevel: 2.5,
			AgeRange:     "6-8",
			Popularity:   42,
		},
		{
			ID:           2,
			Title:        "Space Explorers",
			Text:         "Captain Alex and his crew flew to the distant galaxy in search of new planets. Their spaceship, The Discovery, was equipped with the latest technology. They discovered a planet with purple oceans and green clouds. The inhabitants were friendly and showed them around. The explorers learned about their advanced society and shared information about Earth.",
			Author:       "Tom Brown",
			Genre:        "Science Fiction",
			Topics:       []string{"space", "science", "adventure"},
			ReadingLevel: 3.2,
			AgeRange:     "7-9",
			Popularity:   38,
		},
		{
			ID:           3,
			Title:        "My Pet Dog",
			Text:         "My dog Spot is my best friend. He likes to play ball in the yard. Spot has brown fur and a white patch on his head. Every morning, he wakes me up by licking my face. I take him for walks in the park, and he likes to chase squirrels. Spot knows many tricks like sit, stay, and roll over. I love my dog very much.",
			Author:       "Sarah Johnson",
			Genre:        "Non-fiction",
			Topics:       []string{"animals", "pets", "friendship"},
			ReadingLevel: 1.8,
			AgeRange:     "5-7",
			Popularity:   56,
		},
		{
			ID:           4,
			Title:        "The Lost Dinosaur",
			Text:         "The baby dinosaur couldn't find his mother. He walked through the forest calling for her. Other dinosaurs tried to help him. A friendly pterodactyl flew high to look for his mother. A triceratops let him ride on his back. Finally, they found his mother drinking water at the lake. The baby dinosaur was so happy to be reunited with his family.",
			Author:       "Michael Davis",
			Genre:        "Adventure",
			Topics:       []string{"dinosaurs", "family", "adventure"},
			ReadingLevel: 2.1,
			AgeRange:     "6-8",
			Popularity:   48,
		},
		{
			ID:           5,
			Title:        "The Ocean's Secrets",
			Text:         "Deep under the sea, scientists discovered a hidden world. Using their submarine, they explored coral reefs teeming with colorful fish. They documented new species never seen before. The team collected water samples to study the ocean's chemistry. Their research helps us understand the importance of protecting ocean ecosystems from pollution and climate change.",
			Author:       "Emma Wilson",
			Genre:        "Educational",
			Topics:       []string{"ocean", "science", "discovery"},
			ReadingLevel: 3.8,
			AgeRange:     "8-10",
			Popularity:   35,
		},
		{
			ID:           6,
			Title:        "Robots of the Future",
			Text:         "In the year 2100, robots help humans with everything. They clean houses, teach in schools, and even cook meals. One special robot named Zevo can understand human emotions. Zevo helps a shy boy named Max make friends at school. Together, they learn that both humans and robots have special qualities that make them unique.",
			Author:       "David Chen",
			Genre:        "Science Fiction",
			Topics:       []string{"robots", "future", "friendship"},
			ReadingLevel: 2.8,
			AgeRange:     "7-9",
			Popularity:   41,
		},
		{
			ID:           7,
			Title:        "The Secret Garden Party",
			Text:         "Lisa planned a surprise party in her garden for her best friend's birthday. She decorated the trees with colorful ribbons and paper lanterns. She baked a chocolate cake with strawberry frosting. When her friend arrived, everyone jumped out and yelled 'Surprise!' They played games, ate cake, and had the best garden party ever.",
			Author:       "Patricia Lopez",
			Genre:        "Realistic Fiction",
			Topics:       []string{"friendship", "celebration", "surprises"},
			ReadingLevel: 2.0,
			AgeRange:     "5-7",
			Popularity:   39,
		},
		{
			ID:           8,
			Title:        "Animals of the African Savanna",
			Text:         "The African savanna is home to many fascinating animals. Lions hunt in groups called prides. Giraffes use their long necks to eat leaves from tall trees. Elephants travel in family groups led by the oldest female. Zebras have unique stripe patterns that help them hide from predators. The savanna ecosystem depends on each animal playing its important role.",
			Author:       "Robert King",
			Genre:        "Educational",
			Topics:       []string{"animals", "nature", "geography"},
			ReadingLevel: 3.5,
			AgeRange:     "8-10",
			Popularity:   44,
		},
		{
			ID:           9,
			Title:        "The Little Inventor",
			Text:         "Maria loved to invent things. She collected old toys and broken appliances to use as parts. In her workshop, she built a machine that could sort her toys by color. When the school science fair was announced, Maria decided to make a robot that could water plants automatically. Her invention won first prize, and her teacher encouraged her to keep inventing.",
			Author:       "Carlos Rodriguez",
			Genre:        "Inspirational",
			Topics:       []string{"science", "creativity", "perseverance"},
			ReadingLevel: 2.4,
			AgeRange:     "6-8",
			Popularity:   52,
		},
		{
			ID:           10,
			Title:        "The Mystery of the Missing Cookies",
			Text:         "Someone was taking cookies from the cookie jar, and Detective Sam was on the case. He found crumbs leading to his sister's room, but she wasn't there. He discovered more clues: a stuffed teddy bear with chocolate smudges and tiny footprints in the hallway. Following the trail, Sam found his little brother sharing the cookies with his teddy bear at a tea party.",
			Author:       "Laura Taylor",
			Genre:        "Mystery",
			Topics:       []string{"mystery", "problem-solving", "family"},
			ReadingLevel: 2.3,
			AgeRange:     "6-8",
			Popularity:   47,
		},
	}
}

// SeedUsers 返回演示用户：5 个不同水平与兴趣的读者。
func SeedUsers() []*core.User {
	return []*core.User{
		{ID: 1, Name: "Alex", Age: 7, ReadingLevel: 2.3, Interests: []string{"adventure", "animals", "space"}, History: []int64{1, 3}},
		{ID: 2, Name: "Maya", Age: 9, ReadingLevel: 3.5, Interests: []string{"science", "magic", "mystery"}, History: []int64{2, 5}},
		{ID: 3, Name: "Ethan", Age: 6, ReadingLevel: 1.9, Interests: []string{"dinosaurs", "pets", "space"}, History: []int64{3, 4}},
		{ID: 4, Name: "Sophia", Age: 8, ReadingLevel: 2.7, Interests: []string{"friendship", "animals", "mystery"}, History: []int64{7, 10}},
		{ID: 5, Name: "Noah", Age: 10, ReadingLevel: 3.8, Interests: []string{"science", "robots", "discovery"}, History: []int64{5, 6}},
	}
}

// Seed 将演示数据写入目录。已存在的行会被覆盖（幂等）。
func Seed(ctx context.Context, catalog *Catalog) error {
	for _, item := range SeedCatalog() {
		if err := catalog.SaveContent(ctx, item); err != nil {
			return err
		}
	}
	for _, u := range SeedUsers() {
		if err := catalog.SaveUser(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
