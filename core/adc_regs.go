package core

// ADC register bits (RM0090 section 13.13).
const (
	// SR
	ADC_SR_AWD   = 1 << 0
	ADC_SR_EOC   = 1 << 1
	ADC_SR_JEOC  = 1 << 2
	ADC_SR_JSTRT = 1 << 3
	ADC_SR_STRT  = 1 << 4
	ADC_SR_OVR   = 1 << 5

	// CR1
	ADC_CR1_EOCIE   = 1 << 5
	ADC_CR1_SCAN    = 1 << 8
	ADC_CR1_DISCEN  = 1 << 11
	ADC_CR1_RES_Pos = 24
	ADC_CR1_RES_Msk = 0x3 << ADC_CR1_RES_Pos
	ADC_CR1_OVRIE   = 1 << 26

	// CR2
	ADC_CR2_ADON    = 1 << 0
	ADC_CR2_CONT    = 1 << 1
	ADC_CR2_DMA     = 1 << 8
	ADC_CR2_DDS     = 1 << 9
	ADC_CR2_EOCS    = 1 << 10
	ADC_CR2_ALIGN   = 1 << 11
	ADC_CR2_SWSTART = 1 << 30

	// SMPR1/SMPR2: 3 bits per channel
	ADC_SMPR_Width = 3
	ADC_SMPR_Msk   = 0x7
	ADC_SMPR1_Base = 10 // first channel held in SMPR1

	// SQR1/SQR2/SQR3: 5 bits per slot
	ADC_SQR_Width  = 5
	ADC_SQR_Msk    = 0x1F
	ADC_SQR1_L_Pos = 20
	ADC_SQR1_L_Msk = 0xF << ADC_SQR1_L_Pos

	// CCR (common)
	ADC_CCR_ADCPRE_Pos = 16
	ADC_CCR_ADCPRE_Msk = 0x3 << ADC_CCR_ADCPRE_Pos
	ADC_CCR_VBATE      = 1 << 22
	ADC_CCR_TSVREFE    = 1 << 23

	// DR
	ADC_DR_DATA_Msk = 0xFFFF
)

// MaxChannel is the highest channel id the sample-time registers hold.
const MaxChannel = 18
