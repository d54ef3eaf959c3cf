package mq_client

type Exchange struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type Queue struct {
	Name    string `yaml:"name"`
	Durable bool   `yaml:"durable"`
}

type Binding struct {
	Queue      string `yaml:"queue"`
	CleanStart bool   `yaml:"clean_start"`
	Exchange   string `yaml:"exchange"`
}

type Channel struct {
	Prefetch int `yaml:"prefetch"`
}

type MQClientConfig struct {
	Exchange struct {
		Matching   Exchange `yaml:"matching"`
		Settlement Exchange `yaml:"settlement"`
		Events     Exchange `yaml:"events"`
	}
	Queue struct {
		Matching       Queue `yaml:"matching"`
		OrderProcessor Queue `yaml:"order_processor"`
		TradeExecutor  Queue `yaml:"trade_executor"`
		DepthCache     Queue `yaml:"depth_cache"`
	}
	Binding struct {
		Matching       Binding `yaml:"matching"`
		OrderProcessor Binding `yaml:"order_processor"`
		TradeExecutor  Binding `yaml:"trade_executor"`
		DepthCache     Binding `yaml:"depth_cache"`
	}
	Channel struct {
		Matching       Channel `yaml:"matching"`
		OrderProcessor Channel `yaml:"order_processor"`
		TradeExecutor  Channel `yaml:"trade_executor"`
		DepthCache     Channel `yaml:"depth_cache"`
	}
}
