/*
Copyright 2025

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import "github.com/spf13/viper"

// setDefaults seeds every configuration key so the importer runs with no
// config file at all; only DHAN_ACCESS_TOKEN has to come from outside.
func setDefaults() {
	viper.SetDefault("base_url", "https://api.dhan.co/v2")
	viper.SetDefault("instrument_url", "https://images.dhan.co/api-data/api-scrip-master-detailed.csv")

	viper.SetDefault("spot.start_date", "2021-01-01")
	viper.SetDefault("options.start_date", "2025-01-01")
	viper.SetDefault("stocks.start_date", "2023-01-01")

	viper.SetDefault("options.strike_steps.nifty", 50)
	viper.SetDefault("options.strike_steps.sensex", 100)

	// How to recognise each index in Dhan's instrument master.
	viper.SetDefault("indices.nifty_50.preferred", []string{"NIFTY 50"})
	viper.SetDefault("indices.nifty_50.fallback", []string{"NIFTY"})
	viper.SetDefault("indices.nifty_50.exclude", []string{"BANK", "FIN", "MIDCAP", "NEXT 50", "IT"})
	viper.SetDefault("indices.nifty_50.exchange", "NSE")

	viper.SetDefault("indices.sensex.preferred", []string{"S&P BSE SENSEX", "SENSEX"})
	viper.SetDefault("indices.sensex.fallback", []string{})
	viper.SetDefault("indices.sensex.exclude", []string{"MIDCAP", "SMALLCAP"})
	viper.SetDefault("indices.sensex.exchange", "BSE")

	viper.SetDefault("stocks.symbols", nifty100Symbols)
}

// nifty100Symbols is the NIFTY 100 constituent list. Symbols must match
// Dhan's SYMBOL_NAME column for NSE equities.
var nifty100Symbols = []string{
	"ABB",
	"ADANIENT",
	"ADANIENSOL",
	"ADANIGREEN",
	"ADANIPORTS",
	"ADANIPOWER",
	"AMBUJACEM",
	"APOLLOHOSP",
	"ASIANPAINT",
	"ATGL",
	"AXISBANK",
	"BAJAJ-AUTO",
	"BAJAJFINSV",
	"BAJAJHLDNG",
	"BAJFINANCE",
	"BANKBARODA",
	"BEL",
	"BHARTIARTL",
	"BHEL",
	"BOSCHLTD",
	"BPCL",
	"BRITANNIA",
	"CANBK",
	"CHOLAFIN",
	"CIPLA",
	"COALINDIA",
	"DABUR",
	"DIVISLAB",
	"DLF",
	"DMART",
	"DRREDDY",
	"EICHERMOT",
	"GAIL",
	"GODREJCP",
	"GRASIM",
	"HAL",
	"HAVELLS",
	"HCLTECH",
	"HDFCBANK",
	"HDFCLIFE",
	"HEROMOTOCO",
	"HINDALCO",
	"HINDUNILVR",
	"ICICIBANK",
	"ICICIGI",
	"ICICIPRULI",
	"INDHOTEL",
	"INDIGO",
	"INDUSINDBK",
	"INFY",
	"IOC",
	"IRCTC",
	"IRFC",
	"ITC",
	"JINDALSTEL",
	"JIOFIN",
	"JSWENERGY",
	"JSWSTEEL",
	"KOTAKBANK",
	"LT",
	"LICI",
	"LODHA",
	"LTIM",
	"LUPIN",
	"M&M",
	"MARICO",
	"MARUTI",
	"MOTHERSON",
	"NAUKRI",
	"NESTLEIND",
	"NHPC",
	"NTPC",
	"ONGC",
	"PAGEIND",
	"PFC",
	"PIDILITIND",
	"PNB",
	"POWERGRID",
	"RECLTD",
	"RELIANCE",
	"SAIL",
	"SBICARD",
	"SBILIFE",
	"SBIN",
	"SHREECEM",
	"SHRIRAMFIN",
	"SIEMENS",
	"SUNPHARMA",
	"TATACONSUM",
	"TATAMOTORS",
	"TATAPOWER",
	"TATASTEEL",
	"TCS",
	"TECHM",
	"TITAN",
	"TORNTPHARM",
	"TRENT",
	"TVSMOTOR",
	"ULTRACEMCO",
	"UNIONBANK",
	"UNITDSPR",
	"VEDL",
	"VBL",
	"WIPRO",
	"ZOMATO",
	"ZYDUSLIFE",
}
